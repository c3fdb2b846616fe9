package domain

import "time"

// CacheEntry indexes one artifact in the content-addressable cache. The
// fingerprint is the primary key, so at most one entry exists per
// fingerprint.
type CacheEntry struct {
	Fingerprint Fingerprint `gorm:"type:text;primaryKey" json:"fingerprint"`
	Kind        AssetKind   `gorm:"type:text;index:idx_cache_entries_kind" json:"kind"`
	Path        string      `gorm:"type:text;not null" json:"path"`
	Size        int64       `json:"size"`
	Valid       bool        `gorm:"default:true" json:"valid"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName returns the database table name for CacheEntry.
func (CacheEntry) TableName() string {
	return "cache_entries"
}

package repository

import (
	"context"
	"errors"

	"github.com/timmy/narrator/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CacheEntryRepository indexes cache artifacts by fingerprint.
type CacheEntryRepository struct {
	db *gorm.DB
}

func NewCacheEntryRepository(db *gorm.DB) *CacheEntryRepository {
	return &CacheEntryRepository{db: db}
}

// Get returns the valid entry for fp, or nil when none is indexed.
func (r *CacheEntryRepository) Get(ctx context.Context, kind domain.AssetKind, fp domain.Fingerprint) (*domain.CacheEntry, error) {
	var e domain.CacheEntry
	err := r.db.WithContext(ctx).
		Where("fingerprint = ? AND kind = ? AND valid = ?", fp, kind, true).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Upsert records entry, replacing any row with the same fingerprint.
func (r *CacheEntryRepository) Upsert(ctx context.Context, entry *domain.CacheEntry) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "path", "size", "valid", "updated_at"}),
	}).Create(entry).Error
}

// Delete removes the index row for fp. Missing rows are not an error.
func (r *CacheEntryRepository) Delete(ctx context.Context, fp domain.Fingerprint) error {
	return r.db.WithContext(ctx).Delete(&domain.CacheEntry{}, "fingerprint = ?", fp).Error
}

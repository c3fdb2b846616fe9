package storage

import (
	"strings"

	"github.com/timmy/narrator/internal/config"
)

// NewStorage builds the configured object storage. It returns nil, nil when
// publishing is disabled.
func NewStorage(cfg *config.StorageConfig) (ObjectStorage, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	typ := StorageType(cfg.Type)
	if typ == "" {
		typ = detectStorageType(cfg.Endpoint)
	}
	s, err := NewS3Storage(cfg, typ)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}

package database

import (
	"fmt"

	"gorm.io/gorm"
	"weatherdash.app/internal/config"
	"weatherdash.app/internal/ports"
	"weatherdash.app/pkg/errors"
)

// NewKeyValueStore builds the device storage selected by STORAGE_TYPE.
// The returned *gorm.DB is nil for the memory backend.
func NewKeyValueStore(cfg config.StorageConfig) (ports.KeyValueStore, *gorm.DB, error) {
	switch cfg.Type {
	case config.StorageTypeMemory:
		return NewMemoryKeyValueStore(), nil, nil
	case config.StorageTypeSQLite, config.StorageTypePostgres:
		db, err := Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := RunMigrations(db); err != nil {
			_ = Close(db)
			return nil, nil, err
		}
		return NewKeyValueStoreAdapter(db), db, nil
	default:
		return nil, nil, errors.NewConfigurationError(fmt.Sprintf("unsupported storage type: %s", cfg.Type), nil)
	}
}

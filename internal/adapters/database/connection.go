// Package database persists dashboard state through GORM
package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"weatherdash.app/internal/config"
	"weatherdash.app/pkg/errors"
)

// Open connects to the SQL backend selected by STORAGE_TYPE
func Open(cfg config.StorageConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case config.StorageTypeSQLite:
		if cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, errors.NewStorageError("failed to create sqlite directory", err)
			}
		}
		dialector = sqlite.Open(cfg.SQLitePath)
	case config.StorageTypePostgres:
		dialector = postgres.Open(cfg.Database.GetDSN())
	default:
		return nil, errors.NewConfigurationError(fmt.Sprintf("storage type %q has no SQL backend", cfg.Type), nil)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, errors.NewStorageError("failed to connect to database", err)
	}

	return db, nil
}

// RunMigrations executes database schema migrations
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&KeyValueModel{}); err != nil {
		return errors.NewStorageError("failed to run migrations", err)
	}
	return nil
}

// Close safely closes the database connection
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database answers
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.NewStorageError("failed to get database handle", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.NewStorageError("database ping failed", err)
	}
	return nil
}

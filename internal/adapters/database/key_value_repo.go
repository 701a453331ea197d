package database

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"weatherdash.app/internal/ports"
	"weatherdash.app/pkg/errors"
)

// KeyValueModel represents one persisted value within a device scope
type KeyValueModel struct {
	ID        uint   `gorm:"primaryKey"`
	Scope     string `gorm:"uniqueIndex:idx_scope_key;not null"`
	Key       string `gorm:"column:storage_key;uniqueIndex:idx_scope_key;not null"`
	Value     string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (KeyValueModel) TableName() string {
	return "device_storage"
}

// KeyValueStoreAdapter implements the KeyValueStore port using GORM
type KeyValueStoreAdapter struct {
	db *gorm.DB
}

// NewKeyValueStoreAdapter creates a new key-value store adapter
func NewKeyValueStoreAdapter(db *gorm.DB) *KeyValueStoreAdapter {
	return &KeyValueStoreAdapter{db: db}
}

// Get returns the stored value or a NotFoundError
func (r *KeyValueStoreAdapter) Get(ctx context.Context, scope, key string) ([]byte, error) {
	if err := validateKey(scope, key); err != nil {
		return nil, err
	}

	var model KeyValueModel
	result := r.db.WithContext(ctx).Where("scope = ? AND storage_key = ?", scope, key).First(&model)
	if result.Error != nil {
		if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("no stored value for " + key)
		}
		return nil, errors.NewStorageError("failed to read stored value", result.Error)
	}

	return []byte(model.Value), nil
}

// Put writes value, replacing any previous one for the same scope and key
func (r *KeyValueStoreAdapter) Put(ctx context.Context, scope, key string, value []byte) error {
	if err := validateKey(scope, key); err != nil {
		return err
	}
	if value == nil {
		return errors.NewValidationError("stored value cannot be nil")
	}

	model := KeyValueModel{Scope: scope, Key: key, Value: string(value)}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}, {Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&model)
	if result.Error != nil {
		return errors.NewStorageError("failed to write stored value", result.Error)
	}

	return nil
}

// Delete removes the value. Deleting a missing key is not an error.
func (r *KeyValueStoreAdapter) Delete(ctx context.Context, scope, key string) error {
	if err := validateKey(scope, key); err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Where("scope = ? AND storage_key = ?", scope, key).Delete(&KeyValueModel{})
	if result.Error != nil {
		return errors.NewStorageError("failed to delete stored value", result.Error)
	}

	return nil
}

func validateKey(scope, key string) error {
	if scope == "" {
		return errors.NewValidationError("storage scope cannot be empty")
	}
	if key == "" {
		return errors.NewValidationError("storage key cannot be empty")
	}
	return nil
}

var _ ports.KeyValueStore = (*KeyValueStoreAdapter)(nil)

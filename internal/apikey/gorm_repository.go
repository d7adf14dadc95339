package apikey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// gormAPIKey is the gorm mapping of the api_keys table.
type gormAPIKey struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	APIKey        string    `gorm:"column:api_key;size:40;not null;uniqueIndex:idx_api_keys_api_key"`
	DeviceName    string    `gorm:"column:device_name;size:50;not null;uniqueIndex:idx_api_keys_device_name"`
	Active        bool      `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
	DeactivatedAt *time.Time
}

func (gormAPIKey) TableName() string { return "api_keys" }

func (g *gormAPIKey) toModel() *APIKey {
	return &APIKey{
		ID:            g.ID,
		Key:           g.APIKey,
		DeviceName:    g.DeviceName,
		Active:        g.Active,
		CreatedAt:     g.CreatedAt,
		DeactivatedAt: g.DeactivatedAt,
	}
}

// GormModel returns the gorm mapping for schema migration.
func GormModel() any {
	return &gormAPIKey{}
}

// GormRepository implements Repository using gorm (SQLite or MySQL).
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new Repository backed by the given gorm handle.
func NewGormRepository(db *gorm.DB) Repository {
	return &GormRepository{db: db}
}

// Create inserts a new API key record.
func (r *GormRepository) Create(ctx context.Context, k *APIKey) error {
	row := gormAPIKey{
		APIKey:     k.Key,
		DeviceName: k.DeviceName,
		Active:     k.Active,
	}

	err := r.db.WithContext(ctx).Create(&row).Error
	if err != nil {
		if dup := duplicateError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("inserting api key: %w", err)
	}

	k.ID = row.ID
	k.CreatedAt = row.CreatedAt
	return nil
}

// GetByKey retrieves a single API key record by its key value.
func (r *GormRepository) GetByKey(ctx context.Context, key string) (*APIKey, error) {
	return r.getOne(ctx, "api_key", key)
}

// GetByDeviceName retrieves a single API key record by its device label.
func (r *GormRepository) GetByDeviceName(ctx context.Context, deviceName string) (*APIKey, error) {
	return r.getOne(ctx, "device_name", deviceName)
}

// Deactivate clears the active flag on the key registered for deviceName.
func (r *GormRepository) Deactivate(ctx context.Context, deviceName string) error {
	var row gormAPIKey
	err := r.db.WithContext(ctx).Where(map[string]any{"device_name": deviceName}).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAPIKeyNotFound
		}
		return fmt.Errorf("querying api key: %w", err)
	}

	if !row.Active {
		return nil
	}

	now := time.Now().UTC()
	err = r.db.WithContext(ctx).Model(&row).Updates(map[string]any{
		"active":         false,
		"deactivated_at": now,
	}).Error
	if err != nil {
		return fmt.Errorf("deactivating api key: %w", err)
	}

	return nil
}

func (r *GormRepository) getOne(ctx context.Context, column, value string) (*APIKey, error) {
	var row gormAPIKey
	err := r.db.WithContext(ctx).Where(map[string]any{column: value}).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("querying api key: %w", err)
	}

	return row.toModel(), nil
}

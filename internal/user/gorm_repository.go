package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// gormUser is the gorm mapping of the users table.
type gormUser struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"column:username;size:30;not null;uniqueIndex:idx_users_username"`
	Email        string    `gorm:"column:email;size:50;not null;uniqueIndex:idx_users_email"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (gormUser) TableName() string { return "users" }

func (g *gormUser) toModel() *User {
	return &User{
		ID:           g.ID,
		Username:     g.Username,
		Email:        g.Email,
		PasswordHash: g.PasswordHash,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

// GormModel returns the gorm mapping for schema migration.
func GormModel() any {
	return &gormUser{}
}

// GormRepository implements Repository using gorm (SQLite or MySQL).
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new Repository backed by the given gorm handle.
func NewGormRepository(db *gorm.DB) Repository {
	return &GormRepository{db: db}
}

// Create inserts a new user record.
func (r *GormRepository) Create(ctx context.Context, u *User) error {
	row := gormUser{
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if dup := duplicateError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	u.ID = row.ID
	u.CreatedAt = row.CreatedAt
	u.UpdatedAt = row.UpdatedAt
	return nil
}

// GetByUsername retrieves a single user by username.
func (r *GormRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, "username", username)
}

// GetByEmail retrieves a single user by email.
func (r *GormRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "email", email)
}

// UpdatePasswordHash replaces the stored password hash of a user.
func (r *GormRepository) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	result := r.db.WithContext(ctx).Model(&gormUser{}).Where("id = ?", id).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return fmt.Errorf("updating password hash: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *GormRepository) getOne(ctx context.Context, column, value string) (*User, error) {
	var row gormUser
	err := r.db.WithContext(ctx).Where(map[string]any{column: value}).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return row.toModel(), nil
}

package user

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when a user record is not found.
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicateUsername is returned when the username is already taken.
var ErrDuplicateUsername = errors.New("username already exists")

// ErrDuplicateEmail is returned when the email is already registered.
var ErrDuplicateEmail = errors.New("email already exists")

// Repository provides operations on the users table.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error
}

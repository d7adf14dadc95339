package apikey

import (
	"context"
	"errors"
)

// ErrAPIKeyNotFound is returned when an API key record is not found.
var ErrAPIKeyNotFound = errors.New("api key not found")

// ErrDuplicateKey is returned when the generated key value is already stored.
var ErrDuplicateKey = errors.New("api key already exists")

// ErrDuplicateDeviceName is returned when a key is already registered for the device.
var ErrDuplicateDeviceName = errors.New("device name already exists")

// Repository provides operations on the api_keys table.
type Repository interface {
	Create(ctx context.Context, key *APIKey) error
	GetByKey(ctx context.Context, key string) (*APIKey, error)
	GetByDeviceName(ctx context.Context, deviceName string) (*APIKey, error)
	Deactivate(ctx context.Context, deviceName string) error
}

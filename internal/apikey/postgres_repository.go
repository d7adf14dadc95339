package apikey

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/authgate/authgate/internal/database"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new API key record.
func (r *PostgresRepository) Create(ctx context.Context, k *APIKey) error {
	query := `
		INSERT INTO api_keys (api_key, device_name, active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query, k.Key, k.DeviceName, k.Active).Scan(&k.ID, &k.CreatedAt)
	if err != nil {
		if dup := duplicateError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("inserting api key: %w", err)
	}

	return nil
}

// GetByKey retrieves a single API key record by its key value.
func (r *PostgresRepository) GetByKey(ctx context.Context, key string) (*APIKey, error) {
	query := `
		SELECT id, api_key, device_name, active, created_at, deactivated_at
		FROM api_keys
		WHERE api_key = $1`

	return r.getOne(ctx, query, key)
}

// GetByDeviceName retrieves a single API key record by its device label.
func (r *PostgresRepository) GetByDeviceName(ctx context.Context, deviceName string) (*APIKey, error) {
	query := `
		SELECT id, api_key, device_name, active, created_at, deactivated_at
		FROM api_keys
		WHERE device_name = $1`

	return r.getOne(ctx, query, deviceName)
}

// Deactivate clears the active flag on the key registered for deviceName.
// Deactivating an inactive key is a no-op.
func (r *PostgresRepository) Deactivate(ctx context.Context, deviceName string) error {
	query := `
		UPDATE api_keys
		SET active = FALSE,
		    deactivated_at = COALESCE(deactivated_at, NOW())
		WHERE device_name = $1`

	result, err := r.pool.Exec(ctx, query, deviceName)
	if err != nil {
		return fmt.Errorf("deactivating api key: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}

	return nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*APIKey, error) {
	var k APIKey
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&k.ID, &k.Key, &k.DeviceName, &k.Active, &k.CreatedAt, &k.DeactivatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("querying api key: %w", err)
	}

	return &k, nil
}

// duplicateError maps a unique violation to the matching sentinel, or
// returns nil. device_name is checked first since the table name itself
// contains "api_key".
func duplicateError(err error) error {
	detail, ok := database.UniqueViolation(err)
	if !ok {
		return nil
	}
	switch {
	case strings.Contains(detail, "device_name"):
		return ErrDuplicateDeviceName
	case strings.Contains(detail, "api_key"):
		return ErrDuplicateKey
	}
	return fmt.Errorf("unexpected unique violation: %w", err)
}

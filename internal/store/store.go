// Package store opens the credential store selected by configuration and
// exposes its user and API key repositories.
package store

import (
	"context"
	"fmt"

	"github.com/authgate/authgate/internal/apikey"
	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/internal/database"
	"github.com/authgate/authgate/internal/user"
)

// Store bundles the repositories of one backing database.
type Store struct {
	Users   user.Repository
	APIKeys apikey.Repository

	ping  func(ctx context.Context) error
	close func()
}

// Open connects to the store for driver, applies schema migrations, and
// builds the repositories.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case config.StoreDriverPostgres:
		db, err := database.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return &Store{
			Users:   user.NewRepository(db.Pool()),
			APIKeys: apikey.NewRepository(db.Pool()),
			ping:    db.Ping,
			close:   db.Close,
		}, nil

	case config.StoreDriverSQLite, config.StoreDriverMySQL:
		g, err := database.OpenGorm(ctx, driver, dsn)
		if err != nil {
			return nil, err
		}
		return newGormStore(ctx, g)

	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

func newGormStore(ctx context.Context, g *database.Gorm) (*Store, error) {
	if err := g.AutoMigrate(ctx, user.GormModel(), apikey.GormModel()); err != nil {
		g.Close()
		return nil, err
	}
	return &Store{
		Users:   user.NewGormRepository(g.DB()),
		APIKeys: apikey.NewGormRepository(g.DB()),
		ping:    g.Ping,
		close:   g.Close,
	}, nil
}

// Ping verifies the backing database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the backing connections.
func (s *Store) Close() {
	s.close()
}

package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported gorm drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Gorm wraps a gorm handle for the SQLite and MySQL credential stores.
type Gorm struct {
	db *gorm.DB
}

// OpenGorm opens a gorm connection for driver. For SQLite, dsn is a file
// path whose parent directory is created when missing.
func OpenGorm(ctx context.Context, driver, dsn string) (*Gorm, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." && !isURIOrMemory(dsn) {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("creating sqlite directory: %w", err)
			}
		}
		dialector = sqlite.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported gorm driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}

	g := &Gorm{db: db}
	if err := g.Ping(ctx); err != nil {
		g.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return g, nil
}

// AutoMigrate creates or updates the tables for the given gorm models.
func (g *Gorm) AutoMigrate(ctx context.Context, models ...any) error {
	if err := g.db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// Ping verifies the database connection is alive.
func (g *Gorm) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (g *Gorm) Close() {
	if sqlDB, err := g.db.DB(); err == nil {
		sqlDB.Close()
	}
}

// DB returns the gorm handle for repository use.
func (g *Gorm) DB() *gorm.DB {
	return g.db
}

// isURIOrMemory reports whether a SQLite dsn is not a plain file path.
func isURIOrMemory(dsn string) bool {
	return dsn == ":memory:" || strings.HasPrefix(dsn, "file:")
}

package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Supported credential store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMySQL    = "mysql"
)

// minTokenSecretBytes mirrors token.MinSecretLen.
const minTokenSecretBytes = 16

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port           int    `envconfig:"PORT" default:"8080"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	Version        string `envconfig:"VERSION" default:"dev"`
	StoreDriver    string `envconfig:"STORE_DRIVER" default:"postgres"`
	DatabaseURL    string `envconfig:"DATABASE_URL" default:""`
	SQLitePath     string `envconfig:"SQLITE_PATH" default:"./database/dev.db"`
	TokenSecretKey string `envconfig:"TOKEN_SECRET_KEY" required:"true"`
	TokenExpiry    int    `envconfig:"TOKEN_EXPIRY" default:"1800"`
	BootstrapAdmin bool   `envconfig:"BOOTSTRAP_ADMIN" default:"true"`

	PasswordHashIterations uint32 `envconfig:"PASSWORD_HASH_ITERATIONS" default:"3"`
	PasswordHashMemoryKiB  uint32 `envconfig:"PASSWORD_HASH_MEMORY_KB" default:"65536"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMySQL:
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for store driver %q", c.StoreDriver))
		}
	case StoreDriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for store driver \"sqlite\""))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver))
	}

	secret, err := hex.DecodeString(c.TokenSecretKey)
	if err != nil {
		errs = append(errs, errors.New("TOKEN_SECRET_KEY must be hex-encoded"))
	} else if len(secret) < minTokenSecretBytes {
		errs = append(errs, fmt.Errorf("TOKEN_SECRET_KEY must decode to at least %d bytes", minTokenSecretBytes))
	}

	if c.TokenExpiry <= 0 {
		errs = append(errs, errors.New("TOKEN_EXPIRY must be positive"))
	}

	if c.PasswordHashIterations == 0 {
		errs = append(errs, errors.New("PASSWORD_HASH_ITERATIONS must be positive"))
	}
	if c.PasswordHashMemoryKiB < 8 {
		errs = append(errs, errors.New("PASSWORD_HASH_MEMORY_KB must be at least 8"))
	}

	return errors.Join(errs...)
}

// TokenTTL returns the configured token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenExpiry) * time.Second
}

// StoreDSN returns the connection string for the configured store driver.
func (c *Config) StoreDSN() string {
	if c.StoreDriver == StoreDriverSQLite {
		return c.SQLitePath
	}
	return c.DatabaseURL
}

package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Supported storage backends
const (
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config holds the application configuration
type Config struct {
	// Tracker
	Tracker string `envconfig:"BURNDOWN_TRACKER" default:"gitlab"`

	// Storage
	Storage     string `envconfig:"BURNDOWN_STORAGE" default:"file"`
	CachePath   string `envconfig:"BURNDOWN_CACHE_PATH" default:"burndown-cache.json"`
	SQLitePath  string `envconfig:"BURNDOWN_SQLITE_PATH" default:"./burndown.db"`
	PostgresURL string `envconfig:"BURNDOWN_POSTGRES_URL"`

	// Pipeline
	Samples   int `envconfig:"BURNDOWN_SAMPLES" default:"250"`
	Lookahead int `envconfig:"BURNDOWN_LOOKAHEAD" default:"1"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`

	// API Server
	APIHost string `envconfig:"API_HOST" default:"localhost"`
	APIPort string `envconfig:"API_PORT" default:"8080"`
}

// Load loads the configuration from environment variables.
// envFile is read first when it exists; a missing file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Addr returns the API listen address
func (c *Config) Addr() string {
	return c.APIHost + ":" + c.APIPort
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Tracker != "gitlab" && c.Tracker != "github" {
		return &ConfigError{Field: "BURNDOWN_TRACKER", Message: "must be 'gitlab' or 'github'"}
	}
	switch c.Storage {
	case StorageFile:
		if c.CachePath == "" {
			return &ConfigError{Field: "BURNDOWN_CACHE_PATH", Message: "cache path is required when BURNDOWN_STORAGE is 'file'"}
		}
	case StorageSQLite:
		if c.SQLitePath == "" {
			return &ConfigError{Field: "BURNDOWN_SQLITE_PATH", Message: "SQLite path is required when BURNDOWN_STORAGE is 'sqlite'"}
		}
	case StoragePostgres:
		if c.PostgresURL == "" {
			return &ConfigError{Field: "BURNDOWN_POSTGRES_URL", Message: "PostgreSQL URL is required when BURNDOWN_STORAGE is 'postgres'"}
		}
	default:
		return &ConfigError{Field: "BURNDOWN_STORAGE", Message: "must be 'file', 'sqlite' or 'postgres'"}
	}
	if c.Samples < 2 {
		return &ConfigError{Field: "BURNDOWN_SAMPLES", Message: "must be at least 2"}
	}
	if c.Lookahead < 0 {
		return &ConfigError{Field: "BURNDOWN_LOOKAHEAD", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

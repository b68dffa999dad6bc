// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"bookself/internal/db"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Backend names accepted in BOOKSELF_BACKEND.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
)

// Config holds the settings of a bookself process.
type Config struct {
	Backend     string `envconfig:"BOOKSELF_BACKEND" default:"file"`
	DataDir     string `envconfig:"BOOKSELF_DATA_DIR" default:".bookself"`
	Namespace   string `envconfig:"BOOKSELF_NAMESPACE" default:"bookself:"`
	CatalogFile string `envconfig:"BOOKSELF_CATALOG_FILE"`
	StrictOrder bool   `envconfig:"BOOKSELF_STRICT_STATUS" default:"false"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	RedisURL    string `envconfig:"REDIS_URL"`

	MySQL db.Config `ignored:"true"`
}

// LoadDotenv reads the given .env files (default ".env") into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	mysqlCfg, err := db.FromEnv()
	if err != nil {
		return Config{}, fmt.Errorf("process mysql env: %w", err)
	}
	cfg.MySQL = mysqlCfg

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendMySQL:
	case BackendFile:
		if c.DataDir == "" {
			return fmt.Errorf("BOOKSELF_DATA_DIR is required for the %s backend", BackendFile)
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the %s backend", BackendRedis)
		}
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s, %s or %s)", c.Backend, BackendFile, BackendMemory, BackendRedis, BackendMySQL)
	}
	if c.Namespace == "" {
		return fmt.Errorf("BOOKSELF_NAMESPACE must not be empty")
	}
	return nil
}

// Package config loads cdsctl settings from the environment. A .env file in
// the working directory is read first; variables already set win.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all cdsctl configuration.
type Config struct {
	Store   StoreConfig
	Apps    AppsConfig
	Logging LogConfig
}

// StoreConfig describes the store image and its layout parameters.
type StoreConfig struct {
	Image      string `envconfig:"CDS_IMAGE" default:"cds.img"`
	Size       uint32 `envconfig:"CDS_SIZE" default:"65536"`
	MaxEntries int    `envconfig:"CDS_MAX_ENTRIES" default:"64"`
	Classes    string `envconfig:"CDS_SIZE_CLASSES" default:"HalfStep"`
}

// AppsConfig lists the applications considered running.
type AppsConfig struct {
	Active []string `envconfig:"CDS_ACTIVE_APPS"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"CDS_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"CDS_LOG_DEV" default:"false"`
}

// Load reads envFiles (".env" when none given) and then the environment.
// Missing env files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

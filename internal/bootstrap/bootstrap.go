// Package bootstrap wires cdsctl together: configuration, logging, metrics,
// the application directory and the file-backed store are constructors in a
// dig container, built only when a command asks for them.
package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/joshuapare/cdskit/cds"
	"github.com/joshuapare/cdskit/cds/bsp"
	"github.com/joshuapare/cdskit/cds/pool"
	"github.com/joshuapare/cdskit/internal/config"
	"github.com/joshuapare/cdskit/internal/logging"
)

// Flags are command-line values. Non-zero fields override the environment.
type Flags struct {
	Image    string
	Size     uint32
	Apps     []string
	Verbose  bool
	Quiet    bool
	EnvFiles []string
}

// Env is what commands get without booting the store.
type Env struct {
	dig.In

	Config      *config.Config
	Logger      *zap.Logger
	StoreConfig cds.Config
}

// Session is a booted store and its surroundings.
type Session struct {
	dig.In

	Config      *config.Config
	Logger      *zap.Logger
	StoreConfig cds.Config
	Metrics     *prometheus.Registry
	Apps        *cds.StaticApps
	File        *bsp.File
	Store       *cds.Store
}

func container(f Flags) (*dig.Container, error) {
	c := dig.New()
	constructors := []interface{}{
		func() Flags { return f },
		loadConfig,
		newLogger,
		storeConfig,
		prometheus.NewRegistry,
		apps,
		openImage,
		openStore,
	}
	for _, ctor := range constructors {
		if err := c.Provide(ctor); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Inspect runs fn with configuration and logging only. The image is not
// opened, so read-only commands never trigger a boot.
func Inspect(f Flags, fn func(*Env) error) error {
	c, err := container(f)
	if err != nil {
		return err
	}
	return c.Invoke(func(e Env) error {
		defer func() { _ = e.Logger.Sync() }()
		return fn(&e)
	})
}

// Run boots the store held in the configured image and runs fn against it.
// The image is synced and closed afterwards.
func Run(f Flags, fn func(*Session) error) error {
	c, err := container(f)
	if err != nil {
		return err
	}
	return c.Invoke(func(s Session) (err error) {
		defer func() { _ = s.Logger.Sync() }()
		defer func() {
			err = errors.Join(err, s.File.Sync(), s.File.Close())
		}()
		return fn(&s)
	})
}

func loadConfig(f Flags) (*config.Config, error) {
	cfg, err := config.Load(f.EnvFiles...)
	if err != nil {
		return nil, err
	}
	if f.Image != "" {
		cfg.Store.Image = f.Image
	}
	if f.Size != 0 {
		cfg.Store.Size = f.Size
	}
	if len(f.Apps) > 0 {
		cfg.Apps.Active = f.Apps
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, f Flags) (*zap.Logger, error) {
	lc := logging.DefaultConfig()
	if cfg.Logging.Development {
		lc = logging.DevelopmentConfig()
	}
	lc.Level = cfg.Logging.Level
	switch {
	case f.Quiet:
		lc.Level = "error"
	case f.Verbose:
		lc.Level = "debug"
	}
	return logging.New(lc)
}

func storeConfig(cfg *config.Config) (cds.Config, error) {
	classes, err := pool.LookupConfig(cfg.Store.Classes)
	if err != nil {
		return cds.Config{}, err
	}
	sc := cds.DefaultConfig()
	sc.MaxEntries = cfg.Store.MaxEntries
	sc.SizeClasses = classes
	return sc, nil
}

func apps(cfg *config.Config) *cds.StaticApps {
	return cds.NewStaticApps(cfg.Apps.Active...)
}

// openImage opens the image file, creating it at the configured size when
// it does not exist yet.
func openImage(cfg *config.Config, log *zap.Logger) (*bsp.File, error) {
	path := cfg.Store.Image
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		log.Info("Creating store image", zap.String("path", path), zap.Uint32("size", cfg.Store.Size))
		return bsp.CreateFile(path, cfg.Store.Size)
	}
	return bsp.OpenFile(path)
}

func openStore(file *bsp.File, sc cds.Config, log *zap.Logger, reg *prometheus.Registry, a *cds.StaticApps) (*cds.Store, error) {
	s, err := cds.Open(file, sc, cds.WithLogger(log), cds.WithRegisterer(reg), cds.WithApps(a))
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("open %s: %w", file.Path(), err)
	}
	return s, nil
}

// Package config loads the YAML configuration shared by the hashcons
// command and embedders that prefer a file over building Options by hand.
//
// Example:
//
//	intern:
//	  default_capacity: 4096
//	  capacity: {pitch: 512, chord: 0}
//	daemon:
//	  interval: 30s
//	store:
//	  driver: badger
//	  path: /var/lib/hashcons
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/IvanBrykalov/hashcons/consolidate"
	"github.com/IvanBrykalov/hashcons/intern"
	"github.com/IvanBrykalov/hashcons/store"
	"github.com/IvanBrykalov/hashcons/store/badgerstore"
	"github.com/IvanBrykalov/hashcons/store/boltstore"
	"github.com/IvanBrykalov/hashcons/value"
)

// Store drivers.
const (
	DriverBadger = "badger"
	DriverBolt   = "bolt"
	DriverMemory = "memory"
)

// Config is the root of the file.
type Config struct {
	Intern InternConfig `yaml:"intern"`
	Daemon DaemonConfig `yaml:"daemon"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
}

type InternConfig struct {
	// DefaultCapacity bounds every table without an explicit entry. A
	// negative value disables those tables.
	DefaultCapacity int `yaml:"default_capacity"`

	// Capacity per kind name (pitch, note, ...). 0 disables the table.
	Capacity map[string]int `yaml:"capacity"`

	Shards int  `yaml:"shards"`
	Debug  bool `yaml:"debug"`
}

type DaemonConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	MaxRetries int           `yaml:"max_retries"`
}

type StoreConfig struct {
	Driver     string `yaml:"driver"`
	Path       string `yaml:"path"`
	SyncWrites bool   `yaml:"sync_writes"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Intern: InternConfig{
			DefaultCapacity: intern.DefaultCapacity,
		},
		Daemon: DaemonConfig{
			Enabled:    true,
			Interval:   consolidate.DefaultInterval,
			MaxRetries: consolidate.DefaultMaxRetries,
		},
		Store: StoreConfig{
			Driver: DriverMemory,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults, applies HASHCONS_* environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := errors.Join(fromEnv(&cfg), cfg.Validate()); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse decodes data over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// fromEnv applies the overrides that are set. Malformed values are reported
// and leave the field alone.
func fromEnv(cfg *Config) error {
	var errs []error
	if v := os.Getenv("HASHCONS_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("HASHCONS_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("HASHCONS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HASHCONS_DAEMON_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: HASHCONS_DAEMON_INTERVAL: %w", err))
		} else {
			cfg.Daemon.Interval = d
		}
	}
	if v := os.Getenv("HASHCONS_DEFAULT_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: HASHCONS_DEFAULT_CAPACITY: %w", err))
		} else {
			cfg.Intern.DefaultCapacity = n
		}
	}
	return errors.Join(errs...)
}

// Validate reports every problem it finds, joined.
func (c Config) Validate() error {
	var errs []error
	for name, n := range c.Intern.Capacity {
		if _, err := value.ParseKind(name); err != nil {
			errs = append(errs, fmt.Errorf("intern.capacity: %w", err))
		}
		if n < 0 {
			errs = append(errs, fmt.Errorf("intern.capacity.%s: must not be negative", name))
		}
	}
	if c.Intern.Shards < 0 {
		errs = append(errs, errors.New("intern.shards: must not be negative"))
	}
	if c.Daemon.Interval < 0 {
		errs = append(errs, errors.New("daemon.interval: must not be negative"))
	}
	if c.Daemon.MaxRetries < 0 {
		errs = append(errs, errors.New("daemon.max_retries: must not be negative"))
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverBadger, DriverBolt:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path: required for driver %q", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := c.Log.Format; f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", f))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}

// RegistryOptions converts the intern section.
func (c Config) RegistryOptions(logger *slog.Logger) (intern.Options, error) {
	opt := intern.Options{
		DefaultCapacity: c.Intern.DefaultCapacity,
		Shards:          c.Intern.Shards,
		Debug:           c.Intern.Debug,
		Logger:          logger,
	}
	if len(c.Intern.Capacity) > 0 {
		opt.Capacity = make(map[value.Kind]int, len(c.Intern.Capacity))
		for name, n := range c.Intern.Capacity {
			k, err := value.ParseKind(name)
			if err != nil {
				return intern.Options{}, fmt.Errorf("config: intern.capacity: %w", err)
			}
			opt.Capacity[k] = n
		}
	}
	return opt, nil
}

// DaemonOptions converts the daemon section.
func (c Config) DaemonOptions(logger *slog.Logger) consolidate.Options {
	return consolidate.Options{
		Disabled:   !c.Daemon.Enabled,
		Interval:   c.Daemon.Interval,
		MaxRetries: c.Daemon.MaxRetries,
		Logger:     logger,
	}
}

// OpenStore opens the configured backend. The memory driver is an in-memory
// Badger instance.
func (c Config) OpenStore(logger *slog.Logger) (store.Backend, error) {
	switch c.Store.Driver {
	case DriverMemory, DriverBadger:
		s, err := badgerstore.Open(badgerstore.Config{
			Path:       c.Store.Path,
			InMemory:   c.Store.Driver == DriverMemory,
			SyncWrites: c.Store.SyncWrites,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverBolt:
		s, err := boltstore.Open(c.Store.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
}

// Logger builds the process logger described by the log section.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return l, fmt.Errorf("log.level: unknown level %q", s)
	}
	return l, nil
}

// Package config provides functionality for managing configuration options
// for the application using a config file, environment variables and
// command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Options holds the configuration values for the application.
type Options struct {
	// Addr defines the server's listening address (ip:port).
	Addr string `json:"addr" yaml:"addr"`

	// Store selects the key/value backend: memory, redis or postgres.
	Store string `json:"store" yaml:"store"`
	// RedisAddr is the host:port of the Redis server.
	RedisAddr string `json:"redis_addr" yaml:"redis_addr"`
	// RedisPrefix is prepended to every Redis key.
	RedisPrefix string `json:"redis_prefix" yaml:"redis_prefix"`
	// DatabaseDSN holds the PostgreSQL connection string.
	DatabaseDSN string `json:"database_dsn" yaml:"database_dsn"`

	// NATSURL enables alert publishing when set.
	NATSURL string `json:"nats_url" yaml:"nats_url"`
	// AlertSubject is the NATS subject prefix for alerts.
	AlertSubject string `json:"alert_subject" yaml:"alert_subject"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level"`

	AuthDelay      Duration `json:"auth_delay" yaml:"auth_delay"`
	DisplayDelay   Duration `json:"display_delay" yaml:"display_delay"`
	StatusInterval Duration `json:"status_interval" yaml:"status_interval"`
	// MatchRate is the probability of a successful mock match.
	MatchRate float64 `json:"match_rate" yaml:"match_rate"`
}

// Default returns the built-in configuration.
func Default() *Options {
	return &Options{
		Addr:           "localhost:8080",
		Store:          StoreMemory,
		RedisAddr:      "localhost:6379",
		RedisPrefix:    "guardian:",
		AlertSubject:   "guardian.alerts",
		LogLevel:       "info",
		AuthDelay:      Duration(2 * time.Second),
		DisplayDelay:   Duration(1500 * time.Millisecond),
		StatusInterval: Duration(30 * time.Second),
		MatchRate:      0.75,
	}
}

// Load builds Options from the defaults, the config file at path and the
// environment, in increasing precedence. An empty path falls back to the
// CONFIG environment variable; a missing file is ignored.
func Load(path string) (*Options, error) {
	options := Default()

	if path == "" {
		path = os.Getenv("CONFIG")
	}
	if path != "" {
		if err := loadFile(path, options); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(options); err != nil {
		return nil, err
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}
	return options, nil
}

func loadFile(path string, options *Options) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, options)
	default:
		err = json.Unmarshal(data, options)
	}
	if err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}

func applyEnv(options *Options) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("SERVER_ADDRESS", &options.Addr)
	setString("GUARDIAN_STORE", &options.Store)
	setString("REDIS_ADDR", &options.RedisAddr)
	setString("DATABASE_DSN", &options.DatabaseDSN)
	setString("NATS_URL", &options.NATSURL)
	setString("LOG_LEVEL", &options.LogLevel)

	if v := os.Getenv("MATCH_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid MATCH_RATE %q: %w", v, err)
		}
		options.MatchRate = rate
	}
	return nil
}

// Validate checks option values that cannot be fixed up silently.
func (o *Options) Validate() error {
	switch o.Store {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if o.DatabaseDSN == "" {
			return errors.New("postgres store requires a database DSN")
		}
	default:
		return fmt.Errorf("unknown store %q", o.Store)
	}
	if o.MatchRate < 0 || o.MatchRate > 1 {
		return fmt.Errorf("match rate %v out of range [0,1]", o.MatchRate)
	}
	if o.StatusInterval <= 0 {
		return errors.New("status interval must be positive")
	}
	return nil
}

// Duration is a time.Duration read from strings such as "1.5s".
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalJSON encodes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", b)
	}
	*d = Duration(n)
	return nil
}

// UnmarshalYAML accepts a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Package config loads and validates application configuration from
// environment variables and an optional YAML file, using viper.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Store names accepted by STORE.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config holds all configuration values for the server and CLI.
// Values are populated by Load from environment variables, then from the file
// named by CONFIG_FILE for anything the environment leaves unset.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// Store selects the WorkshopRepo implementation: memory, postgres or sqlite.
	Store string

	// DatabaseURL is the Postgres connection string. Required when Store is postgres.
	DatabaseURL string

	// SQLitePath is the database file used when Store is sqlite.
	SQLitePath string

	// MatchMaxAttempts bounds the randomized matching passes.
	MatchMaxAttempts int

	// MatchExhaustive enables the exhaustive search after the random passes.
	MatchExhaustive bool

	// MaxBodyBytes caps request bodies. Zero disables the cap.
	MaxBodyBytes int64
}

// defaults is applied to every viper instance before reading.
var defaults = map[string]any{
	"port":               "8080",
	"log_level":          "info",
	"cors_origins":       "http://localhost:5173",
	"store":              StoreMemory,
	"sqlite_path":        "santa.db",
	"match_max_attempts": 1000,
	"match_exhaustive":   true,
	"max_body_bytes":     int64(1 << 20),
}

// Load reads configuration from the environment (and CONFIG_FILE, if set)
// and returns a validated Config.
func Load() (Config, error) {
	return FromViper(viper.New())
}

// FromViper loads configuration through v. Callers may bind command-line
// flags to v beforehand; flags win over the environment, which wins over the
// config file.
func FromViper(v *viper.Viper) (Config, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()
	_ = v.BindEnv("config_file", "CONFIG_FILE")

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := Config{
		Port:             v.GetString("port"),
		LogLevel:         strings.ToLower(v.GetString("log_level")),
		CORSOrigins:      stringList(v.Get("cors_origins")),
		Store:            strings.ToLower(v.GetString("store")),
		DatabaseURL:      v.GetString("database_url"),
		SQLitePath:       v.GetString("sqlite_path"),
		MatchMaxAttempts: v.GetInt("match_max_attempts"),
		MatchExhaustive:  v.GetBool("match_exhaustive"),
		MaxBodyBytes:     v.GetInt64("max_body_bytes"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("required environment variables not set: DATABASE_URL"))
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE must be one of memory, postgres, sqlite; got %q", c.Store))
	}
	if c.MatchMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("MATCH_MAX_ATTEMPTS must be at least 1; got %d", c.MatchMaxAttempts))
	}
	if c.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("MAX_BODY_BYTES must not be negative; got %d", c.MaxBodyBytes))
	}
	return errors.Join(errs...)
}

// SlogLevel returns LogLevel as a slog.Level, falling back to info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// stringList accepts either a comma-separated string (environment) or a YAML
// list (config file).
func stringList(v any) []string {
	switch v := v.(type) {
	case string:
		return splitCSV(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, splitCSV(fmt.Sprint(item))...)
		}
		return out
	case []string:
		return splitCSV(strings.Join(v, ","))
	}
	return nil
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

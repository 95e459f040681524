// Package config loads service settings from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/shadowcheck/config.yaml",
}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Database DatabaseConfig `koanf:"database"`
	Limits   LimitsConfig   `koanf:"limits"`
	Security SecurityConfig `koanf:"security"`
	Breaker  BreakerConfig  `koanf:"breaker"`
}

type ServerConfig struct {
	Addr              string        `koanf:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" validate:"gt=0"`
	RequestTimeout    time.Duration `koanf:"request_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=trace debug info warn warning error"`
}

// DatabaseConfig leaves URL empty to run without PostGIS; data endpoints
// then answer 503.
type DatabaseConfig struct {
	URL      string `koanf:"url"`
	MaxConns int32  `koanf:"max_conns" validate:"gte=0"`
	MinConns int32  `koanf:"min_conns" validate:"gte=0,ltefield=MaxConns"`
}

// LimitsConfig caps row counts per endpoint.
type LimitsConfig struct {
	NetworkDefault      int           `koanf:"network_default" validate:"gt=0,ltefield=NetworkMax"`
	NetworkMax          int           `koanf:"network_max" validate:"gt=0"`
	GeospatialDefault   int           `koanf:"geospatial_default" validate:"gt=0,ltefield=GeospatialMax"`
	GeospatialMax       int           `koanf:"geospatial_max" validate:"gt=0"`
	ObservationsDefault int           `koanf:"observations_default" validate:"gt=0,ltefield=ObservationsMax"`
	ObservationsMax     int           `koanf:"observations_max" validate:"gt=0"`
	SlowQuery           time.Duration `koanf:"slow_query" validate:"gt=0"`
}

type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gt=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// BreakerConfig tunes the circuit breaker in front of PostGIS.
type BreakerConfig struct {
	Name             string        `koanf:"name" validate:"required"`
	MaxRequests      uint32        `koanf:"max_requests" validate:"gt=0"`
	Interval         time.Duration `koanf:"interval" validate:"gte=0"`
	Timeout          time.Duration `koanf:"timeout" validate:"gt=0"`
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"gt=0"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8081",
			ReadHeaderTimeout: 5 * time.Second,
			RequestTimeout:    30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Database: DatabaseConfig{
			MaxConns: 10,
			MinConns: 0,
		},
		Limits: LimitsConfig{
			NetworkDefault:      500,
			NetworkMax:          5000,
			GeospatialDefault:   5000,
			GeospatialMax:       500000,
			ObservationsDefault: 500000,
			ObservationsMax:     1000000,
			SlowQuery:           2 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 300,
			RateLimitWindow:   time.Minute,
		},
		Breaker: BreakerConfig{
			Name:             "postgis",
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},
	}
}

// Load layers defaults, the config file and the environment, then validates.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := splitListFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return err
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var envMappings = map[string]string{
	"http_addr":                    "server.addr",
	"http_read_header_timeout":     "server.read_header_timeout",
	"http_request_timeout":         "server.request_timeout",
	"http_shutdown_timeout":        "server.shutdown_timeout",
	"log_level":                    "log.level",
	"database_url":                 "database.url",
	"db_max_conns":                 "database.max_conns",
	"db_min_conns":                 "database.min_conns",
	"network_limit_default":        "limits.network_default",
	"network_limit_max":            "limits.network_max",
	"geospatial_limit_default":     "limits.geospatial_default",
	"geospatial_limit_max":         "limits.geospatial_max",
	"observations_limit_default":   "limits.observations_default",
	"observations_limit_max":       "limits.observations_max",
	"slow_query_threshold":         "limits.slow_query",
	"cors_origins":                 "security.cors_origins",
	"rate_limit_requests":          "security.rate_limit_requests",
	"rate_limit_window":            "security.rate_limit_window",
	"disable_rate_limit":           "security.rate_limit_disabled",
	"db_breaker_max_requests":      "breaker.max_requests",
	"db_breaker_interval":          "breaker.interval",
	"db_breaker_timeout":           "breaker.timeout",
	"db_breaker_failure_threshold": "breaker.failure_threshold",
}

// envTransformFunc maps known environment variables onto config paths and
// drops everything else.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

var listPaths = []string{"security.cors_origins"}

// splitListFields turns comma separated env values into slices.
func splitListFields(k *koanf.Koanf) error {
	for _, path := range listPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

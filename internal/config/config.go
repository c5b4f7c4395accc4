// Package config loads and validates application configuration from YAML files
// and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Definitions   DefinitionsConfig   `yaml:"definitions"`
	Designer      DesignerConfig      `yaml:"designer"`
	Session       SessionConfig       `yaml:"session"`
	Persistence   PersistenceConfig   `yaml:"persistence"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig describes HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	HandlerTimeout  time.Duration `yaml:"handler_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	CORS            CORSConfig    `yaml:"cors"`
}

// CORSConfig describes Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// DefinitionsConfig describes where to find named layout files.
type DefinitionsConfig struct {
	Directories    []string      `yaml:"directories"`
	HotReload      bool          `yaml:"hot_reload"`
	ReloadDebounce time.Duration `yaml:"reload_debounce"`
}

// DesignerConfig holds the editing defaults of a new session.
type DesignerConfig struct {
	HistoryLimit int        `yaml:"history_limit"`
	Grid         GridConfig `yaml:"grid"`
}

// GridConfig describes the canvas grid and its pixel-to-cell ratio.
type GridConfig struct {
	Rows       int     `yaml:"rows"`
	Cols       int     `yaml:"cols"`
	CellWidth  float64 `yaml:"cell_width"`
	CellHeight float64 `yaml:"cell_height"`
}

// SessionConfig describes designer session lifetime.
type SessionConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxSessions   int           `yaml:"max_sessions"`
}

// PersistenceConfig describes where saved configurations are kept.
type PersistenceConfig struct {
	Driver          string        `yaml:"driver"`
	DSNEnv          string        `yaml:"dsn_env"`
	AddrEnv         string        `yaml:"addr_env"`
	DB              int           `yaml:"db"`
	KeyPrefix       string        `yaml:"key_prefix"`
	TTL             time.Duration `yaml:"ttl"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	Breaker         BreakerConfig `yaml:"breaker"`
}

// BreakerConfig describes the circuit breaker in front of remote backends.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
}

// Persistence drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// ObservabilityConfig describes logging, tracing, and metrics settings.
type ObservabilityConfig struct {
	LogLevel string        `yaml:"log_level"`
	Tracing  TracingConfig `yaml:"tracing"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// TracingConfig describes distributed tracing settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// MetricsConfig describes Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			HandlerTimeout:  25 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
			CORS: CORSConfig{
				AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "X-Correlation-Id", "X-Session-Id"},
				MaxAge:         86400,
			},
		},
		Definitions: DefinitionsConfig{
			Directories:    []string{"layouts"},
			ReloadDebounce: 200 * time.Millisecond,
		},
		Designer: DesignerConfig{
			HistoryLimit: 50,
			Grid: GridConfig{
				Rows:       12,
				Cols:       12,
				CellWidth:  100,
				CellHeight: 60,
			},
		},
		Session: SessionConfig{
			IdleTTL:       30 * time.Minute,
			SweepInterval: time.Minute,
			MaxSessions:   1000,
		},
		Persistence: PersistenceConfig{
			Driver:          DriverMemory,
			DSNEnv:          "DESIGNER_DATABASE_URL",
			AddrEnv:         "DESIGNER_REDIS_ADDR",
			KeyPrefix:       "designer:layout:",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			Breaker: BreakerConfig{
				FailureThreshold: 5,
				SuccessThreshold: 2,
				OpenTimeout:      30 * time.Second,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			Tracing: TracingConfig{
				Exporter:     "otlp",
				SamplingRate: 0.1,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// Load reads a YAML config file, applies environment variable overrides,
// and validates required fields.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return cfg, nil
}

// FromEnv returns the defaults with environment overrides applied, for
// running without a config file.
func FromEnv() (*Config, error) {
	cfg := Defaults()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Designer.HistoryLimit < 1 {
		errs = append(errs, "designer.history_limit must be at least 1")
	}
	if c.Designer.Grid.Rows < 1 || c.Designer.Grid.Cols < 1 {
		errs = append(errs, "designer.grid rows and cols must be at least 1")
	}
	if c.Designer.Grid.CellWidth <= 0 || c.Designer.Grid.CellHeight <= 0 {
		errs = append(errs, "designer.grid cell_width and cell_height must be positive")
	}
	if c.Session.MaxSessions < 1 {
		errs = append(errs, "session.max_sessions must be at least 1")
	}
	if c.Session.IdleTTL <= 0 {
		errs = append(errs, "session.idle_ttl must be positive")
	}

	switch c.Persistence.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Persistence.DSNEnv == "" {
			errs = append(errs, "persistence.dsn_env is required for the postgres driver")
		}
	case DriverRedis:
		if c.Persistence.AddrEnv == "" {
			errs = append(errs, "persistence.addr_env is required for the redis driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("persistence.driver %q is not supported (memory, postgres, redis)", c.Persistence.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// applyEnvOverrides reads DESIGNER_* environment variables and overrides
// config values. Only the most commonly overridden fields are supported.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DESIGNER_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DESIGNER_OBSERVABILITY_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("DESIGNER_PERSISTENCE_DRIVER"); v != "" {
		cfg.Persistence.Driver = v
	}
	if v := os.Getenv("DESIGNER_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Designer.HistoryLimit = n
		}
	}
	if v := os.Getenv("DESIGNER_DEFINITIONS_DIRECTORIES"); v != "" {
		var dirs []string
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(d); d != "" {
				dirs = append(dirs, d)
			}
		}
		cfg.Definitions.Directories = dirs
	}
}

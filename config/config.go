// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shelf-cms/shelf/core/schema"
	"github.com/shelf-cms/shelf/domain/auth"
	"github.com/shelf-cms/shelf/domain/session"
)

// App is the root configuration structure. Lists and the access
// predicate can be supplied programmatically or loaded from files;
// the rest is plain YAML.
type App struct {
	DB       DBConfig        `yaml:"db"`
	Server   ServerConfig    `yaml:"server"`
	Session  session.Config  `yaml:"session"`
	Auth     *auth.Auth      `yaml:"auth,omitempty"`
	ListsDir string          `yaml:"lists_dir"`
	Logging  LoggingConfig   `yaml:"logging"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	UI       UIConfig        `yaml:"-"`
	Lists    schema.Lists    `yaml:"-"`
}

// DBConfig configures the database.
type DBConfig struct {
	Provider string `yaml:"provider"` // "sqlite"
	URL      string `yaml:"url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// UnmarshalYAML accepts timeouts as duration strings ("30s", "1m").
func (s *ServerConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Host         string `yaml:"host"`
		Port         int    `yaml:"port"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	s.Host = raw.Host
	s.Port = raw.Port
	if raw.ReadTimeout != "" {
		d, err := time.ParseDuration(raw.ReadTimeout)
		if err != nil {
			return fmt.Errorf("server.read_timeout: %w", err)
		}
		s.ReadTimeout = d
	}
	if raw.WriteTimeout != "" {
		d, err := time.ParseDuration(raw.WriteTimeout)
		if err != nil {
			return fmt.Errorf("server.write_timeout: %w", err)
		}
		s.WriteTimeout = d
	}
	return nil
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // default: /metrics
}

// UIConfig configures the admin surface. Not representable in YAML;
// set programmatically.
type UIConfig struct {
	// IsAccessAllowed decides whether a request may use the admin
	// surface. Defaults to requiring a session when auth is
	// configured, and allowing everything otherwise.
	IsAccessAllowed AccessPredicate
}

// RequestContext is what an access predicate sees about a request.
type RequestContext struct {
	// Session is the verified session, or nil when the request
	// carries none.
	Session *session.Data
}

// AccessPredicate decides whether a request may use the admin surface.
type AccessPredicate func(RequestContext) bool

// SessionRequired is the default predicate when auth is configured:
// access requires a verified session.
func SessionRequired(ctx RequestContext) bool {
	return ctx.Session != nil
}

// Load reads configuration from a YAML file. Lists are parsed from
// lists_dir when set.
func Load(path string) (*App, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg App
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if cfg.ListsDir != "" {
		lists, err := schema.ParseDir(cfg.ListsDir)
		if err != nil {
			return nil, fmt.Errorf("load lists: %w", err)
		}
		cfg.Lists = lists
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// WithAuth returns a copy of the configuration with auth enabled.
// The descriptor is validated against the configured lists, and the
// access predicate defaults to requiring a session.
func (c App) WithAuth(a *auth.Auth) (App, error) {
	if a == nil {
		return c, fmt.Errorf("auth descriptor is nil")
	}
	if err := a.Validate(c.Lists); err != nil {
		return c, err
	}
	c.Auth = a
	if c.UI.IsAccessAllowed == nil {
		c.UI.IsAccessAllowed = SessionRequired
	}
	return c, nil
}

// Validate checks the configuration for boot. All problems are
// reported, not just the first.
func (c *App) Validate() error {
	var errs []string

	if c.DB.Provider != "sqlite" {
		errs = append(errs, fmt.Sprintf("db.provider must be 'sqlite', got %q", c.DB.Provider))
	}
	if c.DB.URL == "" {
		errs = append(errs, "db.url is required")
	}

	if len(c.Lists) == 0 {
		errs = append(errs, "at least one list is required")
	} else if err := schema.Validate(c.Lists); err != nil {
		errs = append(errs, err.Error())
	}

	if c.Auth != nil {
		if err := c.Auth.Validate(c.Lists); err != nil {
			errs = append(errs, err.Error())
		}
		if len(c.Session.Secret) < session.MinSecretLength {
			errs = append(errs, fmt.Sprintf("session.secret must be at least %d characters when auth is configured",
				session.MinSecretLength))
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, fmt.Sprintf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// applyEnvOverrides applies SHELF_* environment variables.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *App) {
	if v := os.Getenv("SHELF_DB_PROVIDER"); v != "" {
		cfg.DB.Provider = v
	}
	if v := os.Getenv("SHELF_DB_URL"); v != "" {
		cfg.DB.URL = v
	}

	if v := os.Getenv("SHELF_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SHELF_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SHELF_SESSION_SECRET"); v != "" {
		cfg.Session.Secret = v
	}
	if v := os.Getenv("SHELF_SESSION_MAX_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Session.MaxAge = d
		}
	}

	if v := os.Getenv("SHELF_LISTS_DIR"); v != "" {
		cfg.ListsDir = v
	}

	if v := os.Getenv("SHELF_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SHELF_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("SHELF_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("SHELF_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *App) {
	if cfg.DB.Provider == "" {
		cfg.DB.Provider = "sqlite"
	}
	if cfg.DB.URL == "" {
		cfg.DB.URL = "shelf.db"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// ApplyDefaults fills in defaults on a programmatically built
// configuration. Load does this automatically.
func (c *App) ApplyDefaults() {
	setDefaults(c)
}

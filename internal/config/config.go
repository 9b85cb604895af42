// Package config loads and validates the holidaysync YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata" // timezone lookups work in minimal containers

	"gopkg.in/yaml.v3"
)

// Defaults applied by Load for fields left unset.
const (
	DefaultListenAddr  = ":8080"
	DefaultSyncHour    = 2
	DefaultTimezone    = "UTC"
	DefaultHTTPTimeout = 30 * time.Second
	DefaultLogLimit    = 20
	maxLogLimit        = 500
	maxHTTPTimeout     = 10 * time.Minute
	minJWTSecretLength = 16
)

// Config holds the full application configuration loaded from YAML.
type Config struct {
	// DBPath is the SQLite database file. Empty means the default under
	// ~/.local/share/holidaysync.
	DBPath string `yaml:"db_path,omitempty"`

	// ListenAddr is the HTTP listen address for "serve". Defaults to ":8080".
	ListenAddr string `yaml:"listen_addr,omitempty"`

	// JWTSecret is the HS256 key used to verify bearer tokens on the admin
	// API. Required by "serve"; at least 16 characters.
	JWTSecret string `yaml:"jwt_secret,omitempty"`

	// SyncHour is the local hour (0-23) of the nightly sync. Defaults to 2.
	SyncHour *int `yaml:"sync_hour,omitempty"`

	// Timezone is the IANA zone for the nightly sync and for deciding the
	// current year. Defaults to UTC.
	Timezone string `yaml:"timezone,omitempty"`

	// HTTPTimeout bounds each provider request. Defaults to 30s, max 10m.
	HTTPTimeout time.Duration `yaml:"http_timeout,omitempty"`

	// DefaultLimit is the number of sync log entries returned when a query
	// gives no limit. Defaults to 20, max 500.
	DefaultLimit int `yaml:"default_limit,omitempty"`

	// Telemetry configures optional OpenTelemetry export via OTLP gRPC.
	// Omit the block entirely to disable telemetry.
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty"`

	loc *time.Location
}

// TelemetryConfig holds optional OpenTelemetry settings.
type TelemetryConfig struct {
	// OTLPEndpoint is the gRPC host:port of the OTLP collector (e.g. "localhost:4317").
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Insecure disables TLS for the collector connection. Use for local collectors.
	Insecure bool `yaml:"insecure,omitempty"`

	// ServiceName overrides the OTel service.name attribute. Defaults to "holidaysync".
	ServiceName string `yaml:"service_name,omitempty"`

	// Environment is reported as deployment.environment, e.g. "production".
	Environment string `yaml:"environment,omitempty"`

	// Headers contains key-value pairs sent as gRPC metadata on every OTLP
	// request, e.g. Authorization: "Bearer <token>".
	Headers map[string]string `yaml:"headers,omitempty"`
}

// DefaultPath returns the default config file path: ~/.config/holidaysync/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "holidaysync", "config.yaml"), nil
}

// Load reads and validates the configuration file at the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true) // reject unknown keys to catch typos early
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Write validates c and saves it to path as YAML, creating the parent
// directory. The file is readable by the owner only since it holds the JWT
// secret.
func (c *Config) Write(path string) error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("writing config file %q: %w", path, err)
	}
	return nil
}

// Hour returns the nightly sync hour.
func (c *Config) Hour() int {
	if c.SyncHour == nil {
		return DefaultSyncHour
	}
	return *c.SyncHour
}

// Location returns the configured time zone.
func (c *Config) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// RequireServe checks the fields only the HTTP server needs.
func (c *Config) RequireServe() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required to serve the admin API")
	}
	return nil
}

// validate fills in defaults and checks that all fields are well-formed.
func (c *Config) validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}

	if c.JWTSecret != "" && len(c.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("jwt_secret must be at least %d characters", minJWTSecretLength)
	}

	if c.SyncHour == nil {
		h := DefaultSyncHour
		c.SyncHour = &h
	}
	if *c.SyncHour < 0 || *c.SyncHour > 23 {
		return fmt.Errorf("sync_hour %d must be between 0 and 23", *c.SyncHour)
	}

	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	c.loc = loc

	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.HTTPTimeout < 0 || c.HTTPTimeout > maxHTTPTimeout {
		return fmt.Errorf("http_timeout %v must be between 0 and %v", c.HTTPTimeout, maxHTTPTimeout)
	}

	if c.DefaultLimit == 0 {
		c.DefaultLimit = DefaultLogLimit
	}
	if c.DefaultLimit < 1 || c.DefaultLimit > maxLogLimit {
		return fmt.Errorf("default_limit %d must be between 1 and %d", c.DefaultLimit, maxLogLimit)
	}

	if c.Telemetry != nil {
		if c.Telemetry.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry.otlp_endpoint is required when telemetry is configured")
		}
	}

	return nil
}

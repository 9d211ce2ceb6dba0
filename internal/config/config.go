// Package config provides configuration management for the item store server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default configuration values.
const (
	DefaultServerPort         = 3000
	DefaultProbePort          = 0
	DefaultLogLevel           = "info"
	DefaultShutdownTimeout    = 30 * time.Second
	DefaultReadTimeout        = 15 * time.Second
	DefaultWriteTimeout       = 15 * time.Second
	DefaultMaxBodyBytes int64 = 1 << 20
	DefaultMetricsEnabled     = true
	DefaultCORSEnabled        = true
	DefaultCORSAllowedOrigins = "*"
	DefaultEventsEnabled      = true
	DefaultOTLPInsecure       = true
	DefaultServiceName        = "itemstore"
	DefaultEnvFile            = ".env"
)

// Environment variable names.
const (
	EnvPort               = "PORT"
	EnvServerPort         = "APP_SERVER_PORT"
	EnvProbePort          = "APP_PROBE_PORT"
	EnvLogLevel           = "APP_LOG_LEVEL"
	EnvLogFile            = "APP_LOG_FILE"
	EnvShutdownTimeout    = "APP_SHUTDOWN_TIMEOUT"
	EnvReadTimeout        = "APP_READ_TIMEOUT"
	EnvWriteTimeout       = "APP_WRITE_TIMEOUT"
	EnvMaxBodyBytes       = "APP_MAX_BODY_BYTES"
	EnvMetricsEnabled     = "APP_METRICS_ENABLED"
	EnvCORSEnabled        = "APP_CORS_ENABLED"
	EnvCORSAllowedOrigins = "APP_CORS_ALLOWED_ORIGINS"
	EnvEventsEnabled      = "APP_EVENTS_ENABLED"
	EnvOTLPEndpoint       = "APP_OTLP_ENDPOINT"
	EnvOTLPInsecure       = "APP_OTLP_INSECURE"
	EnvServiceName        = "APP_SERVICE_NAME"
	EnvEnvFile            = "APP_ENV_FILE"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int
	ProbePort       int // Probe server port (0 = disabled).
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxBodyBytes    int64

	// Logging settings.
	LogLevel string
	LogFile  string // Rotating JSON log file, in addition to stdout.

	// Feature toggles.
	MetricsEnabled     bool
	CORSEnabled        bool
	CORSAllowedOrigins []string
	EventsEnabled      bool

	// Tracing settings. An empty endpoint disables tracing.
	OTLPEndpoint string
	OTLPInsecure bool
	ServiceName  string
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidReadTimeout     = errors.New("read timeout must be positive")
	ErrInvalidWriteTimeout    = errors.New("write timeout must be positive")
	ErrInvalidMaxBodyBytes    = errors.New("max body bytes must be positive")
	ErrInvalidProbePort       = errors.New(
		"probe port must be between 0 and 65535",
	)
	ErrProbePortConflict = errors.New(
		"probe port must differ from server port when probe port is not 0",
	)
	ErrInvalidCORSOrigins = errors.New(
		"at least one CORS origin must be set when CORS is enabled",
	)
	ErrInvalidServiceName = errors.New(
		"service name must be set when an OTLP endpoint is configured",
	)
)

// Load reads configuration from environment variables with defaults.
// Variables from the env file (.env unless APP_ENV_FILE says otherwise)
// are applied first and never override variables already set in the
// process environment. A missing env file is not an error.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	cfg := &Config{
		ServerPort:         DefaultServerPort,
		ProbePort:          DefaultProbePort,
		LogLevel:           DefaultLogLevel,
		ShutdownTimeout:    DefaultShutdownTimeout,
		ReadTimeout:        DefaultReadTimeout,
		WriteTimeout:       DefaultWriteTimeout,
		MaxBodyBytes:       DefaultMaxBodyBytes,
		MetricsEnabled:     DefaultMetricsEnabled,
		CORSEnabled:        DefaultCORSEnabled,
		CORSAllowedOrigins: splitList(DefaultCORSAllowedOrigins),
		EventsEnabled:      DefaultEventsEnabled,
		OTLPInsecure:       DefaultOTLPInsecure,
		ServiceName:        DefaultServiceName,
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadEnvFile applies the env file to the process environment.
func loadEnvFile() error {
	path := DefaultEnvFile
	if val := os.Getenv(EnvEnvFile); val != "" {
		path = val
	}

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}

	return nil
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if err := c.loadServerEnv(); err != nil {
		return err
	}

	c.loadLoggingEnv()

	if err := c.loadFeatureEnv(); err != nil {
		return err
	}

	if err := c.loadTracingEnv(); err != nil {
		return err
	}

	return nil
}

// loadServerEnv loads server-related environment variables.
// APP_SERVER_PORT takes precedence over PORT.
func (c *Config) loadServerEnv() error {
	for _, name := range []string{EnvPort, EnvServerPort} {
		if val := os.Getenv(name); val != "" {
			port, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", name, err)
			}
			c.ServerPort = port
		}
	}

	if val := os.Getenv(EnvProbePort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvProbePort, err)
		}
		c.ProbePort = port
	}

	durations := []struct {
		name   string
		target *time.Duration
	}{
		{EnvShutdownTimeout, &c.ShutdownTimeout},
		{EnvReadTimeout, &c.ReadTimeout},
		{EnvWriteTimeout, &c.WriteTimeout},
	}
	for _, d := range durations {
		if val := os.Getenv(d.name); val != "" {
			timeout, err := time.ParseDuration(val)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", d.name, err)
			}
			*d.target = timeout
		}
	}

	if val := os.Getenv(EnvMaxBodyBytes); val != "" {
		limit, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMaxBodyBytes, err)
		}
		c.MaxBodyBytes = limit
	}

	return nil
}

// loadLoggingEnv loads logging environment variables.
func (c *Config) loadLoggingEnv() {
	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvLogFile); val != "" {
		c.LogFile = val
	}
}

// loadFeatureEnv loads metrics, CORS and event feed toggles.
func (c *Config) loadFeatureEnv() error {
	toggles := []struct {
		name   string
		target *bool
	}{
		{EnvMetricsEnabled, &c.MetricsEnabled},
		{EnvCORSEnabled, &c.CORSEnabled},
		{EnvEventsEnabled, &c.EventsEnabled},
	}
	for _, tg := range toggles {
		if val := os.Getenv(tg.name); val != "" {
			enabled, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", tg.name, err)
			}
			*tg.target = enabled
		}
	}

	if val, ok := os.LookupEnv(EnvCORSAllowedOrigins); ok {
		c.CORSAllowedOrigins = splitList(val)
	}

	return nil
}

// loadTracingEnv loads OpenTelemetry exporter variables.
func (c *Config) loadTracingEnv() error {
	if val := os.Getenv(EnvOTLPEndpoint); val != "" {
		c.OTLPEndpoint = val
	}

	if val := os.Getenv(EnvOTLPInsecure); val != "" {
		insecure, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvOTLPInsecure, err)
		}
		c.OTLPInsecure = insecure
	}

	if val, ok := os.LookupEnv(EnvServiceName); ok {
		c.ServiceName = val
	}

	return nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if c.CORSEnabled && len(c.CORSAllowedOrigins) == 0 {
		return ErrInvalidCORSOrigins
	}

	if c.OTLPEndpoint != "" && c.ServiceName == "" {
		return ErrInvalidServiceName
	}

	return nil
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	if c.ProbePort < 0 || c.ProbePort > 65535 {
		return ErrInvalidProbePort
	}

	if c.ProbePort != 0 && c.ProbePort == c.ServerPort {
		return ErrProbePortConflict
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	if c.ReadTimeout <= 0 {
		return ErrInvalidReadTimeout
	}

	if c.WriteTimeout <= 0 {
		return ErrInvalidWriteTimeout
	}

	if c.MaxBodyBytes <= 0 {
		return ErrInvalidMaxBodyBytes
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// ProbeAddress returns the probe server address in host:port format.
func (c *Config) ProbeAddress() string {
	return fmt.Sprintf(":%d", c.ProbePort)
}

// splitList splits a comma-separated value, dropping blank entries.
func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

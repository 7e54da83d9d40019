// Package config provides configuration management for the scholar harvest service.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the scholar harvest service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// SerpAPI contains upstream search API client settings.
	SerpAPI SerpAPIConfig `mapstructure:"serpapi"`
	// Harvest contains pagination engine settings.
	Harvest HarvestConfig `mapstructure:"harvest"`
	// Artifacts contains ephemeral artifact store settings.
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading the request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing the response. It
	// bounds the whole harvest SSE stream, so it defaults high (30m).
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the keep-alive idle timeout.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// SerpAPIConfig holds upstream search API client settings. The API key itself
// is caller-supplied per harvest request and never configured here.
type SerpAPIConfig struct {
	// BaseURL is the search endpoint URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for upstream calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// BurstSize is the maximum burst of requests allowed.
	BurstSize int `mapstructure:"burst_size"`
}

// HarvestConfig holds pagination engine settings.
type HarvestConfig struct {
	// PageDelay is the fixed pause between page fetches.
	PageDelay time.Duration `mapstructure:"page_delay"`
}

// ArtifactsConfig holds ephemeral artifact store settings.
type ArtifactsConfig struct {
	// TTL is how long an artifact stays retrievable after a run completes.
	TTL time.Duration `mapstructure:"ttl"`
	// SweepInterval is how often expired artifacts are evicted.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("SCHOLARCSV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/scholar-harvest-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30m")
	v.SetDefault("server.idle_timeout", "2m")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// SerpAPI defaults
	v.SetDefault("serpapi.base_url", "https://serpapi.com/search")
	v.SetDefault("serpapi.timeout", "30s")
	v.SetDefault("serpapi.rate_limit", 1.0)
	v.SetDefault("serpapi.burst_size", 1)

	// Harvest defaults
	v.SetDefault("harvest.page_delay", "1s")

	// Artifact store defaults
	v.SetDefault("artifacts.ttl", "1h")
	v.SetDefault("artifacts.sweep_interval", "1m")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate upstream client config
	if c.SerpAPI.BaseURL == "" {
		return fmt.Errorf("serpapi base_url is required")
	}
	if c.SerpAPI.RateLimit <= 0 {
		return fmt.Errorf("serpapi rate_limit must be positive")
	}
	if c.SerpAPI.BurstSize <= 0 {
		return fmt.Errorf("serpapi burst_size must be positive")
	}

	// Validate pipeline config
	if c.Harvest.PageDelay < 0 {
		return fmt.Errorf("harvest page_delay must not be negative")
	}
	if c.Artifacts.TTL <= 0 {
		return fmt.Errorf("artifacts ttl must be positive")
	}
	if c.Artifacts.SweepInterval <= 0 {
		return fmt.Errorf("artifacts sweep_interval must be positive")
	}

	return nil
}

// Package config provides configuration loading and management for the admin gateway.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variables consumed by the gateway.
const EnvPrefix = "ADMIN_GW"

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// Address is the listen address for the HTTP server
	// Defaults to ":8080" if not specified
	Address string `yaml:"address,omitempty"`

	// Supabase holds identity store connection settings
	Supabase SupabaseConfig `yaml:"supabase"`

	// Owner designates the single protected owner account
	Owner OwnerConfig `yaml:"owner"`

	// Metrics enables the Prometheus metrics endpoint
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// SupabaseConfig defines the identity store connection settings
type SupabaseConfig struct {
	// URL is the Supabase project URL, e.g. https://xyz.supabase.co
	URL string `yaml:"url"`

	// AnonKey is the public API key used to resolve caller session tokens
	AnonKey string `yaml:"anonKey"`

	// ServiceRoleKey is the privileged API key for admin operations.
	// Prefer ServiceRoleKeyFile or the environment variable in production.
	ServiceRoleKey string `yaml:"serviceRoleKey,omitempty"`

	// ServiceRoleKeyFile is the path to a file containing the service role key.
	// The file should contain only the key with optional trailing whitespace.
	ServiceRoleKeyFile string `yaml:"serviceRoleKeyFile,omitempty"`
}

// OwnerConfig designates the fixed owner identity
type OwnerConfig struct {
	// Email is the address of the one account that may hold the owner role
	Email string `yaml:"email"`
}

// MetricsConfig defines metrics endpoint settings
type MetricsConfig struct {
	// Enabled turns on the /metrics endpoint and HTTP instrumentation
	Enabled bool `yaml:"enabled"`
}

// GetServiceRoleKey returns the service role key using the following priority:
// 1. Read from ServiceRoleKeyFile if specified
// 2. Read from ADMIN_GW_SERVICE_ROLE_KEY environment variable
// 3. Inline ServiceRoleKey value
//
// The key from file will have leading/trailing whitespace trimmed.
func (s *SupabaseConfig) GetServiceRoleKey() (string, error) {
	if s.ServiceRoleKeyFile != "" {
		// Use filepath.Clean to prevent path traversal attacks
		cleanPath := filepath.Clean(s.ServiceRoleKeyFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read service role key from file %s: %w", s.ServiceRoleKeyFile, err)
		}

		key := strings.TrimSpace(string(data))
		return key, nil
	}

	if envKey := os.Getenv(EnvPrefix + "_SERVICE_ROLE_KEY"); envKey != "" {
		return envKey, nil
	}

	if s.ServiceRoleKey != "" {
		return s.ServiceRoleKey, nil
	}

	return "", fmt.Errorf(
		"no service role key configured: set serviceRoleKeyFile, serviceRoleKey or the %s_SERVICE_ROLE_KEY environment variable",
		EnvPrefix,
	)
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetAddress returns the listen address, using ":8080" if not specified
func (c *Config) GetAddress() string {
	if c.Address == "" {
		return ":8080"
	}
	return c.Address
}

// MetricsEnabled reports whether the metrics endpoint is enabled
func (c *Config) MetricsEnabled() bool {
	return c.Metrics != nil && c.Metrics.Enabled
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if c.Supabase.URL == "" {
		return fmt.Errorf("supabase.url is required")
	}
	parsed, err := url.Parse(c.Supabase.URL)
	if err != nil {
		return fmt.Errorf("supabase.url is not a valid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("supabase.url must use http or https, got %q", c.Supabase.URL)
	}

	if c.Supabase.AnonKey == "" {
		return fmt.Errorf("supabase.anonKey is required")
	}

	if c.Owner.Email == "" {
		return fmt.Errorf("owner.email is required")
	}
	if !strings.Contains(c.Owner.Email, "@") {
		return fmt.Errorf("owner.email is not a valid email address: %q", c.Owner.Email)
	}

	return nil
}

// Package config loads and validates the sentinel configuration.
//
// DESIGN: All configuration comes from a YAML file with ${VAR:-default}
// environment expansion. Required fields have no silent defaults; optional
// tuning knobs (intervals, capacities) fall back to documented defaults in
// their owning components.
//
// FILES:
//   - config.go:     Root Config struct, Load(), Validate()
//   - sections.go:   Per-component config sections
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`     // HTTP surface settings
	Monitoring MonitoringConfig `yaml:"monitoring"` // logging, sampling, tick intervals
	Threat     ThreatConfig     `yaml:"threat"`     // persistence and audit trail
	Notify     NotifyConfig     `yaml:"notify"`     // downstream channels
}

// expandEnvWithDefaults expands environment variables with support for
// default values. Supports both ${VAR} and ${VAR:-default} syntax.
func expandEnvWithDefaults(s string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML bytes, expanding
// environment variables and validating the result.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvWithDefaults(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides lets deployment tooling redirect file paths without
// editing the base config.
func (c *Config) applyEnvOverrides() {
	if envPath := os.Getenv("SENTINEL_THREAT_DB"); envPath != "" {
		c.Threat.DatabasePath = envPath
	}
	if envPath := os.Getenv("SENTINEL_AUDIT_LOG"); envPath != "" {
		c.Threat.AuditLogPath = envPath
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Monitoring.Validate(); err != nil {
		return err
	}
	if err := c.Threat.Validate(); err != nil {
		return err
	}
	return nil
}

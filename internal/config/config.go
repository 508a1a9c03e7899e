// Package config holds the amdify configuration: the name translation
// tables and the knobs for batch conversion runs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"amdify/internal/translate"
)

// DefaultConfigFile is the config file looked up in the working
// directory when no --config flag is given.
const DefaultConfigFile = ".amdify.yaml"

// Config holds all amdify configuration.
type Config struct {
	// Mapping drives the dependency name translation. Entries here
	// extend the built-in tables; exact matches win over suffix rules.
	Mapping translate.Mapping `yaml:"mapping"`

	// Convert controls batch conversion runs.
	Convert ConvertConfig `yaml:"convert"`

	// Logging configures diagnostic output.
	Logging LoggingConfig `yaml:"logging"`
}

// ConvertConfig configures the batch driver.
type ConvertConfig struct {
	// Ignores lists slash-separated path prefixes excluded from runs.
	Ignores []string `yaml:"ignores"`

	// Limit caps how many files one run rewrites. Zero means no cap.
	Limit int `yaml:"limit"`

	// Jobs bounds how many files are rewritten concurrently.
	Jobs int `yaml:"jobs"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration. The default mapping
// covers the common steal-era libraries; projects pin their own names
// in .amdify.yaml.
func DefaultConfig() *Config {
	return &Config{
		Mapping: translate.Mapping{
			Exact: map[string]string{
				"jquery": "jquery",
			},
			Plugins: []translate.PluginRule{
				{Suffix: ".mustache!", Prefix: "mustache!"},
				{Suffix: ".ejs!", Prefix: "ejs!"},
			},
		},

		Convert: ConvertConfig{
			Limit: 0,
			Jobs:  4,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file is not an
// error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AMDIFY_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Convert.Jobs = n
		}
	}
	if v := os.Getenv("AMDIFY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Convert.Limit = n
		}
	}
	if v := os.Getenv("AMDIFY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for i, rule := range c.Mapping.Plugins {
		if rule.Suffix == "" {
			return fmt.Errorf("mapping.plugins[%d]: empty suffix would match every dependency", i)
		}
	}
	if c.Convert.Jobs < 1 {
		return fmt.Errorf("convert.jobs must be at least 1, got %d", c.Convert.Jobs)
	}
	if c.Convert.Limit < 0 {
		return fmt.Errorf("convert.limit must not be negative, got %d", c.Convert.Limit)
	}
	return nil
}

// Package config holds the file-backed configuration for the clarify CLI
// and its pipeline. Defaults are embedded in code, a YAML file overrides
// them, and environment variables override the file, in that order. The
// config file is optional; a missing file yields the defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AryaShetye/clarify-md/internal/reasoning"
)

// Config holds all clarify configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Reasoning capability (Gemini adapter)
	Reasoning reasoning.GeminiConfig `yaml:"reasoning"`

	// Reasoning middleware
	Retry RetryConfig `yaml:"retry"`
	Cache CacheConfig `yaml:"cache"`

	// Pipeline behavior
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Deterministic override table
	Override OverrideConfig `yaml:"override"`

	// Clinical vocabulary
	Ontology OntologyConfig `yaml:"ontology"`

	// Audit trail
	Audit AuditConfig `yaml:"audit"`

	// Operational logging
	Logging LoggingConfig `yaml:"logging"`
}

// RetryConfig bounds transient-failure retries at the reasoning boundary.
type RetryConfig struct {
	Attempts  int    `yaml:"attempts"`
	BaseDelay string `yaml:"base_delay"`
}

// CacheConfig sizes the reasoning response cache. Zero disables caching.
type CacheConfig struct {
	Size int `yaml:"size"`
}

// PipelineConfig configures the orchestrator.
type PipelineConfig struct {
	// Timeout bounds one full interpretation run.
	Timeout string `yaml:"timeout"`
}

// OverrideConfig points at an escalation pattern table. An empty path keeps
// the built-in table; Watch hot-reloads the file on change.
type OverrideConfig struct {
	TablePath string `yaml:"table_path"`
	Watch     bool   `yaml:"watch"`
}

// OntologyConfig points at a vocabulary file. An empty path keeps the
// built-in clinical vocabulary.
type OntologyConfig struct {
	VocabPath string `yaml:"vocab_path"`
}

// AuditConfig configures the JSONL audit sink. An empty path disables it.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:      "clarify-md",
		Version:   "0.4.0",
		Reasoning: reasoning.DefaultGeminiConfig(),
		Retry: RetryConfig{
			Attempts:  3,
			BaseDelay: "200ms",
		},
		Cache: CacheConfig{
			Size: 256,
		},
		Pipeline: PipelineConfig{
			Timeout: "30s",
		},
		Override: OverrideConfig{},
		Audit: AuditConfig{
			Path: "clarify-audit.jsonl",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file returns the
// defaults; environment variables are applied on top either way.
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
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides. The API key is
// also resolved again by the Gemini adapter, so setting it here only matters
// when a config file carries a placeholder value.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Reasoning.APIKey = key
	} else if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.Reasoning.APIKey = key
	}
	if path := os.Getenv("CLARIFY_AUDIT_LOG"); path != "" {
		c.Audit.Path = path
	}
	if path := os.Getenv("CLARIFY_OVERRIDE_TABLE"); path != "" {
		c.Override.TablePath = path
	}
	if path := os.Getenv("CLARIFY_VOCAB"); path != "" {
		c.Ontology.VocabPath = path
	}
	if level := os.Getenv("CLARIFY_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if timeout := os.Getenv("CLARIFY_TIMEOUT"); timeout != "" {
		c.Pipeline.Timeout = timeout
	}
}

// GetPipelineTimeout returns the orchestrator deadline as a duration.
func (c *Config) GetPipelineTimeout() time.Duration {
	d, err := time.ParseDuration(c.Pipeline.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// GetRetryBaseDelay returns the retry backoff base as a duration.
func (c *Config) GetRetryBaseDelay() time.Duration {
	d, err := time.ParseDuration(c.Retry.BaseDelay)
	if err != nil || d <= 0 {
		return 200 * time.Millisecond
	}
	return d
}

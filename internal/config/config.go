// Package config handles configuration loading for the edikit CLI and batch
// driver.
//
// Configuration is loaded from a YAML file with support for environment
// variable expansion (${VAR} or $VAR syntax), so paths and tuning values can
// be injected at runtime.
//
// # Configuration Sections
//
//   - schemas: MIG XML file, PID schema directory, AHB overlay directory
//   - mappings: TOML mapping definition directory, transaction group
//   - validation: default level and the severity that fails a run
//   - batch: worker count and per-message timeout
//   - observability: metrics endpoint settings
//
// # Example Configuration
//
//	schemas:
//	  mig: ${EDIKIT_SCHEMA_DIR}/utilmd_s2_1.xml
//	  pidDir: ${EDIKIT_SCHEMA_DIR}/pids
//	  ahbDir: ${EDIKIT_SCHEMA_DIR}/ahbs
//
//	mappings:
//	  dir: ./mappings/utilmd
//	  transactionGroup: SG4
//
//	batch:
//	  workers: 8
//	  messageTimeout: 30s
//
// See [Load] for loading configuration from a file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure
type Config struct {
	Schemas    SchemasConfig    `yaml:"schemas"`
	Mappings   MappingsConfig   `yaml:"mappings"`
	Validation ValidationConfig `yaml:"validation"`
	Batch      BatchConfig      `yaml:"batch"`
	Metrics    MetricsConfig    `yaml:"observability"`
}

// SchemasConfig points at the schema artifacts a run needs
type SchemasConfig struct {
	// MIG is the path of the message implementation guide XML
	MIG string `yaml:"mig"`
	// PIDDir holds one PID schema JSON file per Prüfidentifikator
	PIDDir string `yaml:"pidDir"`
	// AHBDir holds one AHB overlay JSON file per Prüfidentifikator
	AHBDir string `yaml:"ahbDir"`
}

// MappingsConfig holds mapping engine settings
type MappingsConfig struct {
	// Dir holds the TOML mapping definitions, one entity per file
	Dir string `yaml:"dir"`
	// TransactionGroup is the group delimiting transactions (default SG4)
	TransactionGroup string `yaml:"transactionGroup"`
}

// ValidationConfig holds validator defaults
type ValidationConfig struct {
	// Level is "structure", "conditions" or "full"
	Level string `yaml:"level"`
	// FailOn is the severity at or above which a run exits nonzero
	FailOn string `yaml:"failOn"`
}

// BatchConfig holds batch driver tuning
type BatchConfig struct {
	// Workers is the fan-out width; 0 means GOMAXPROCS
	Workers int `yaml:"workers"`
	// MessageTimeout bounds one message's conversion
	MessageTimeout time.Duration `yaml:"messageTimeout"`
}

// MetricsConfig holds observability settings
type MetricsConfig struct {
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Address string `yaml:"address"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Mappings.TransactionGroup == "" {
		c.Mappings.TransactionGroup = "SG4"
	}
	if c.Validation.Level == "" {
		c.Validation.Level = "structure"
	}
	if c.Validation.FailOn == "" {
		c.Validation.FailOn = "error"
	}
	if c.Batch.MessageTimeout == 0 {
		c.Batch.MessageTimeout = 30 * time.Second
	}
	if c.Metrics.Metrics.Path == "" {
		c.Metrics.Metrics.Path = "/metrics"
	}
	if c.Metrics.Metrics.Address == "" {
		c.Metrics.Metrics.Address = ":9464"
	}
}

func (c *Config) validate() error {
	if c.Schemas.MIG == "" {
		return fmt.Errorf("schemas.mig is required")
	}
	if c.Mappings.Dir == "" {
		return fmt.Errorf("mappings.dir is required")
	}

	switch c.Validation.Level {
	case "structure", "conditions", "full":
		// Valid levels
	default:
		return fmt.Errorf("validation.level must be 'structure', 'conditions' or 'full', got '%s'", c.Validation.Level)
	}

	switch c.Validation.FailOn {
	case "info", "warning", "error", "critical":
		// Valid severities
	default:
		return fmt.Errorf("validation.failOn must be a severity name, got '%s'", c.Validation.FailOn)
	}

	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers must not be negative")
	}

	return nil
}

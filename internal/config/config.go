package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DefaultBinary         = "mergestat"
	DefaultMaxOutputBytes = 10 * 1024 * 1024
	schemaFileName        = "schema.sql"
	outputDirName         = "mergestat-mcp"
)

// Config holds everything the adapter needs at startup. Values come from the
// environment (optionally seeded from a .env file) and can be overridden by
// command-line flags.
type Config struct {
	Binary         string `env:"MERGESTAT_BIN" envDefault:"mergestat"`
	SchemaPath     string `env:"MERGESTAT_SCHEMA_PATH"`
	OutputDir      string `env:"MERGESTAT_OUTPUT_DIR"`
	MaxOutputBytes int    `env:"MERGESTAT_MAX_OUTPUT_BYTES" envDefault:"10485760"`
	HistoryPath    string `env:"MERGESTAT_HISTORY_DB"`
	MetricsAddr    string `env:"MERGESTAT_METRICS_ADDR"`
	Verbose        bool   `env:"MERGESTAT_MCP_VERBOSE"`
}

// Load reads .env (if present) and the environment into a Config and fills
// in path defaults.
func Load() (*Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills empty fields with their defaults
func (c *Config) ApplyDefaults() {
	if c.Binary == "" {
		c.Binary = DefaultBinary
	}
	if c.MaxOutputBytes == 0 {
		c.MaxOutputBytes = DefaultMaxOutputBytes
	}
	if c.SchemaPath == "" {
		c.SchemaPath = DefaultSchemaPath()
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir()
	}
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.Binary == "" {
		return errors.New("mergestat binary is required")
	}
	if c.MaxOutputBytes <= 0 {
		return fmt.Errorf("max output bytes must be positive, got %d", c.MaxOutputBytes)
	}
	if c.SchemaPath == "" {
		return errors.New("schema path is required")
	}
	if c.OutputDir == "" {
		return errors.New("output dir is required")
	}
	return nil
}

// DefaultSchemaPath is schema.sql next to the running executable, falling
// back to the working directory when the executable path is unknown.
func DefaultSchemaPath() string {
	exe, err := os.Executable()
	if err != nil {
		return schemaFileName
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), schemaFileName)
}

// DefaultOutputDir is where query results land when they are not returned inline
func DefaultOutputDir() string {
	return filepath.Join(os.TempDir(), outputDirName)
}

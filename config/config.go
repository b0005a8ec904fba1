// Package config holds the benchmark configuration and its file and
// environment loaders.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/weiihann/fkbench/batch"
	"github.com/weiihann/fkbench/harness"
	"github.com/weiihann/fkbench/store"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "FKBENCH_"

// Config holds everything one benchmark run needs.
type Config struct {
	// Matrix lists the (parents, children) sizes, benchmarked in order
	Matrix []harness.Entry `json:"matrix" yaml:"matrix"`

	// Trials is the number of trials aggregated per label
	Trials int `json:"trials" yaml:"trials"`

	// BatchSize bounds in-flight requests during update and delete
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Seed feeds the data generator; 0 picks a time-based seed
	Seed int64 `json:"seed" yaml:"seed"`

	// Dialect selects the backend: sqlite, postgres, mysql, memory
	Dialect string `json:"dialect" yaml:"dialect"`

	// DSN is the connection string; empty falls back to the dialect's
	// environment variable and then its default
	DSN string `json:"dsn" yaml:"dsn"`

	// PoolSize caps open connections; 0 keeps the dialect default
	PoolSize int `json:"pool_size" yaml:"pool_size"`

	// Cascade is the deleteCascade strategy: bulk or per-parent
	Cascade string `json:"cascade" yaml:"cascade"`

	// Verify enables untimed row count checks after each phase
	Verify bool `json:"verify" yaml:"verify"`

	// OutputDir receives the results file
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// DefaultMatrix returns the standard benchmark sizes.
func DefaultMatrix() []harness.Entry {
	return []harness.Entry{
		{Parents: 10, Children: 100},
		{Parents: 10, Children: 1_000},
		{Parents: 10, Children: 100_000},
		{Parents: 100, Children: 100_000},
		{Parents: 1_000, Children: 100_000},
	}
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Matrix:    DefaultMatrix(),
		Trials:    10,
		BatchSize: batch.DefaultSize,
		Dialect:   string(store.DialectSQLite),
		Cascade:   string(harness.CascadeBulk),
		OutputDir: "results",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Matrix) == 0 {
		return fmt.Errorf("matrix must list at least one entry")
	}

	for i, e := range c.Matrix {
		if e.Parents <= 0 {
			return fmt.Errorf("matrix[%d]: parents must be positive, got %d", i, e.Parents)
		}
		if e.Children < 0 {
			return fmt.Errorf("matrix[%d]: children must not be negative, got %d", i, e.Children)
		}
	}

	if c.Trials <= 0 {
		return fmt.Errorf("trials must be positive, got %d", c.Trials)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}

	if c.PoolSize < 0 {
		return fmt.Errorf("pool_size must not be negative, got %d", c.PoolSize)
	}

	if _, err := store.ParseDialect(c.Dialect); err != nil {
		return err
	}

	if _, err := harness.ParseCascade(c.Cascade); err != nil {
		return err
	}

	return nil
}

// ParseMatrix parses a comma separated list such as "10x100,10x1000".
func ParseMatrix(s string) ([]harness.Entry, error) {
	var out []harness.Entry

	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		p, c, ok := strings.Cut(strings.ToLower(item), "x")
		if !ok {
			return nil, fmt.Errorf("invalid matrix entry %q (want <parents>x<children>)", item)
		}

		parents, err := parseCount(p)
		if err != nil {
			return nil, fmt.Errorf("invalid matrix entry %q: parents: %w", item, err)
		}

		children, err := parseCount(c)
		if err != nil {
			return nil, fmt.Errorf("invalid matrix entry %q: children: %w", item, err)
		}

		out = append(out, harness.Entry{Parents: parents, Children: children})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("empty matrix %q", s)
	}

	return out, nil
}

// parseCount accepts plain integers with optional "_" separators.
func parseCount(s string) (int, error) {
	return strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
}

// LoadFromFile loads configuration from a YAML or JSON file on top of
// the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv overlays FKBENCH_* environment variables onto cfg.
func LoadFromEnv(cfg *Config) error {
	if v := os.Getenv(EnvPrefix + "MATRIX"); v != "" {
		m, err := ParseMatrix(v)
		if err != nil {
			return fmt.Errorf("%sMATRIX: %w", EnvPrefix, err)
		}
		cfg.Matrix = m
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"TRIALS", &cfg.Trials},
		{"BATCH_SIZE", &cfg.BatchSize},
		{"POOL_SIZE", &cfg.PoolSize},
	}
	for _, it := range ints {
		v := os.Getenv(EnvPrefix + it.name)
		if v == "" {
			continue
		}

		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, it.name, err)
		}
		*it.dst = n
	}

	if v := os.Getenv(EnvPrefix + "SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sSEED: %w", EnvPrefix, err)
		}
		cfg.Seed = n
	}

	if v := os.Getenv(EnvPrefix + "DIALECT"); v != "" {
		cfg.Dialect = v
	}
	if v := os.Getenv(EnvPrefix + "DSN"); v != "" {
		cfg.DSN = v
	}
	if v := os.Getenv(EnvPrefix + "CASCADE"); v != "" {
		cfg.Cascade = v
	}
	if v := os.Getenv(EnvPrefix + "VERIFY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sVERIFY: %w", EnvPrefix, err)
		}
		cfg.Verify = b
	}
	if v := os.Getenv(EnvPrefix + "OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}

	return nil
}

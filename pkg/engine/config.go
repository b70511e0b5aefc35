package engine

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the engine tunables spec §6's ExecContext-level knobs
// expose: traversal batch size, result-set cap, and the query-local
// timeout spec §5 checks at operator boundaries. Grounded on the
// teacher's pkg/config "config struct + defaults func" shape, adapted
// from env-var loading to YAML since this engine has no long-running
// server process to source environment variables from.
type Config struct {
	// BatchSize is the number of source records a batched traverse
	// gathers into one filter matrix per matrix kernel call (spec §4.4).
	BatchSize int `yaml:"batchSize"`

	// ResultCap bounds the Results operator's buffered row count (spec
	// §4.2.9); 0 means unbounded.
	ResultCap int64 `yaml:"resultCap"`

	// QueryTimeout is the query-local budget checked at operator
	// boundaries (spec §5, §7's Timeout error kind). 0 disables the
	// check.
	QueryTimeout time.Duration `yaml:"queryTimeout"`
}

// DefaultConfig returns the engine's built-in tunable defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:    256,
		ResultCap:    0,
		QueryTimeout: 30 * time.Second,
	}
}

// LoadConfig reads a YAML config file, applying DefaultConfig for any
// field the file leaves zero-valued. A missing file is not an error —
// callers get the defaults, matching the teacher's LoadFromEnv
// "works with nothing set" convention.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("engine: reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("engine: parsing config %s: %w", path, err)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	return cfg, nil
}

// Validate checks the configuration for nonsensical values.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("engine: batchSize must be positive, got %d", c.BatchSize)
	}
	if c.ResultCap < 0 {
		return fmt.Errorf("engine: resultCap must not be negative, got %d", c.ResultCap)
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("engine: queryTimeout must not be negative, got %s", c.QueryTimeout)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/harvester/internal/infra/storage"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Load reads configuration from a YAML file.
// An empty path yields the defaults, so a run can be configured from flags alone.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ApplyDefaults fills unset fields.
func ApplyDefaults(cfg *AppConfig) {
	if cfg.Source.Timeout == 0 {
		cfg.Source.Timeout = 30 * time.Second
	}
	if cfg.Source.MetadataPrefix == "" {
		cfg.Source.MetadataPrefix = "oai_dc"
	}
	if cfg.Harvest.CapacityFraction == 0 {
		cfg.Harvest.CapacityFraction = storage.DefaultCapacityFraction
	}
	if cfg.Redis.Stream == "" {
		cfg.Redis.Stream = "harvester:events"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate checks the settings a run cannot start without.
func (c *AppConfig) Validate() error {
	if c.Source.URL == "" {
		return fmt.Errorf("%w: source url is required", ErrInvalidConfig)
	}
	if c.Harvest.OutputDir == "" {
		return fmt.Errorf("%w: output directory is required", ErrInvalidConfig)
	}
	if c.Harvest.SuggestedWait < 0 {
		return fmt.Errorf("%w: suggested wait must be >= 0, got %v", ErrInvalidConfig, c.Harvest.SuggestedWait)
	}
	if c.Harvest.MaxRequests < 0 {
		return fmt.Errorf("%w: max requests must be >= 0, got %d", ErrInvalidConfig, c.Harvest.MaxRequests)
	}
	if c.Harvest.MaxWaitRetries < 0 {
		return fmt.Errorf("%w: max wait retries must be >= 0, got %d", ErrInvalidConfig, c.Harvest.MaxWaitRetries)
	}
	if c.Harvest.CapacityFraction <= 0 || c.Harvest.CapacityFraction > 1 {
		return fmt.Errorf("%w: capacity fraction must be in (0, 1], got %v", ErrInvalidConfig, c.Harvest.CapacityFraction)
	}
	return nil
}

package config

import (
	"time"

	redisclient "github.com/vietddude/harvester/internal/infra/redis"
	"github.com/vietddude/harvester/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Source   SourceConfig       `yaml:"source"`
	Harvest  HarvestConfig      `yaml:"harvest"`
	Server   ServerConfig       `yaml:"server"`
	Redis    redisclient.Config `yaml:"redis"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
}

// SourceConfig describes the OAI-PMH endpoint and the initial ListRecords filters.
type SourceConfig struct {
	URL            string        `yaml:"url"`
	Timeout        time.Duration `yaml:"timeout"`
	MetadataPrefix string        `yaml:"metadata_prefix"`
	From           string        `yaml:"from"`
	Until          string        `yaml:"until"`
	Set            string        `yaml:"set"`
	Identify       bool          `yaml:"identify"` // probe with Identify before harvesting
}

// HarvestConfig holds settings for one harvest run.
type HarvestConfig struct {
	StartToken       string        `yaml:"start_token"`
	OutputDir        string        `yaml:"output_dir"`
	MaxRequests      int           `yaml:"max_requests"`      // 0 = unbounded
	SuggestedWait    time.Duration `yaml:"suggested_wait"`    // floor for every pause
	CapacityFraction float64       `yaml:"capacity_fraction"` // share of free space usable
	MaxWaitRetries   int           `yaml:"max_wait_retries"`  // 0 = unbounded
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"` // 0 disables the health server
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

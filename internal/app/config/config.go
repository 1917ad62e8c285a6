package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/lucianolorenti/rul-pm/internal/adapters/observability"
	"github.com/lucianolorenti/rul-pm/internal/domain"
)

const (
	DefaultURL        = "https://drive.google.com/uc?id=15Jx9Scq9FqpIGn8jbAQB_lcHSXvIoPzb"
	DefaultRoot       = "./data/datasets"
	DefaultRULStep    = 4
	DefaultStatus     = "FIXTURESHUTTERPOSITION"
	DefaultUserAgent  = "rulpm/1.0"
	envPrefix         = "RULPM_"
	defaultTimeout    = 30 * time.Minute
	defaultTable      = "phm2018_lives"
	defaultMetricAddr = ":9100"
)

// DefaultUsageColumns are the cumulative counters that stall while a tool idles.
var DefaultUsageColumns = []string{"ETCHAUXSOURCETIMER", "ETCHSOURCEUSAGE"}

type Config struct {
	Dataset   DatasetConfig           `yaml:"dataset" envPrefix:"DATASET_"`
	Download  DownloadConfig          `yaml:"download" envPrefix:"DOWNLOAD_"`
	Timescale TimescaleConfig         `yaml:"timescale" envPrefix:"TIMESCALE_"`
	Metrics   MetricsConfig           `yaml:"metrics" envPrefix:"METRICS_"`
	Log       observability.LogConfig `yaml:"log" envPrefix:"LOG_"`
}

type DatasetConfig struct {
	// Root holds the phm_data_challenge_2018 folder.
	Root         string   `yaml:"root" env:"ROOT"`
	URL          string   `yaml:"url" env:"URL"`
	FailureTypes []string `yaml:"failure_types" env:"FAILURE_TYPES" envSeparator:","`
	// Tools restricts the dataset to the listed units; empty means all.
	Tools        []string `yaml:"tools" env:"TOOLS" envSeparator:","`
	RULStep      float64  `yaml:"rul_step" env:"RUL_STEP"`
	StatusColumn string   `yaml:"status_column" env:"STATUS_COLUMN"`
	StatusActive *float64 `yaml:"status_active" env:"STATUS_ACTIVE"`
	UsageColumns []string `yaml:"usage_columns" env:"USAGE_COLUMNS" envSeparator:","`
	// ValidityWorkers bounds the concurrent blob reads of the validity pass.
	ValidityWorkers int  `yaml:"validity_workers" env:"VALIDITY_WORKERS"`
	ValidityCache   bool `yaml:"validity_cache" env:"VALIDITY_CACHE"`
}

type DownloadConfig struct {
	Timeout   time.Duration `yaml:"timeout" env:"TIMEOUT"`
	UserAgent string        `yaml:"user_agent" env:"USER_AGENT"`
}

type TimescaleConfig struct {
	ConnString string `yaml:"conn_string" env:"CONN_STRING"`
	Table      string `yaml:"table" env:"TABLE"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// Load reads YAML from path, applies RULPM_* environment overrides, fills
// defaults and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Finalize applies defaults and validates a programmatically built config.
func (c *Config) Finalize() error {
	c.applyDefaults()
	return c.validate()
}

func (c *Config) applyDefaults() {
	if c.Dataset.Root == "" {
		c.Dataset.Root = DefaultRoot
	}
	if c.Dataset.URL == "" {
		c.Dataset.URL = DefaultURL
	}
	if c.Dataset.RULStep == 0 {
		c.Dataset.RULStep = DefaultRULStep
	}
	if c.Dataset.StatusColumn == "" {
		c.Dataset.StatusColumn = DefaultStatus
	}
	if c.Dataset.StatusActive == nil {
		active := 1.0
		c.Dataset.StatusActive = &active
	}
	if c.Dataset.UsageColumns == nil {
		c.Dataset.UsageColumns = append([]string(nil), DefaultUsageColumns...)
	}
	if c.Dataset.ValidityWorkers <= 0 {
		c.Dataset.ValidityWorkers = 1
	}
	if c.Download.Timeout == 0 {
		c.Download.Timeout = defaultTimeout
	}
	if c.Download.UserAgent == "" {
		c.Download.UserAgent = DefaultUserAgent
	}
	if c.Timescale.Table == "" {
		c.Timescale.Table = defaultTable
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = defaultMetricAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	if _, err := domain.ParseFailureTypes(c.Dataset.FailureTypes); err != nil {
		return fmt.Errorf("dataset.failure_types: %w", err)
	}
	if c.Dataset.RULStep < 0 {
		return fmt.Errorf("dataset.rul_step must be positive")
	}
	if c.Download.Timeout < 0 {
		return fmt.Errorf("download.timeout must be >= 0")
	}
	return nil
}

// Failures resolves the configured category filter.
func (d DatasetConfig) Failures() ([]domain.FailureType, error) {
	return domain.ParseFailureTypes(d.FailureTypes)
}

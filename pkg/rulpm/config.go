package rulpm

import (
	"github.com/lucianolorenti/rul-pm/internal/adapters/observability"
	"github.com/lucianolorenti/rul-pm/internal/app/config"
	"github.com/lucianolorenti/rul-pm/internal/domain"
	"github.com/lucianolorenti/rul-pm/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// DatasetConfig selects lives and tunes the query-time cleanup.
	DatasetConfig = config.DatasetConfig
	// DownloadConfig configures archive acquisition.
	DownloadConfig = config.DownloadConfig
	// TimescaleConfig configures the export sink.
	TimescaleConfig = config.TimescaleConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// LogConfig configures the zap logger.
	LogConfig = observability.LogConfig
)

type (
	Frame         = domain.Frame
	Column        = domain.Column
	FailureType   = domain.FailureType
	ManifestEntry = domain.ManifestEntry

	Observability = ports.Observability
	LifeStore     = ports.LifeStore
	ValidityCache = ports.ValidityCache
	Fetcher       = ports.Fetcher
	Extractor     = ports.Extractor
	ProgressFunc  = ports.ProgressFunc
)

const (
	FlowCoolPressureDroppedBelowLimit        = domain.FlowCoolPressureDroppedBelowLimit
	FlowcoolPressureTooHighCheckFlowcoolPump = domain.FlowcoolPressureTooHighCheckFlowcoolPump
	FlowcoolLeak                             = domain.FlowcoolLeak

	RULColumn = domain.RULColumn
)

var (
	ErrAcquisition         = domain.ErrAcquisition
	ErrUnsafeArchivePath   = domain.ErrUnsafeArchivePath
	ErrUnrecognizedFailure = domain.ErrUnrecognizedFailure
	ErrUnknownFailureType  = domain.ErrUnknownFailureType
	ErrMissingSensorStream = domain.ErrMissingSensorStream
	ErrMissingColumn       = domain.ErrMissingColumn
	ErrCorruptManifest     = domain.ErrCorruptManifest
	ErrIndexOutOfRange     = domain.ErrIndexOutOfRange
)

// LoadConfig loads YAML from disk and applies RULPM_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns a finalized configuration with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	_ = cfg.Finalize()
	return cfg
}

// FailureTypes lists every fault category.
func FailureTypes() []FailureType { return domain.FailureTypes() }

// ParseFailureType accepts a category identifier or its canonical text.
func ParseFailureType(s string) (FailureType, error) { return domain.ParseFailureType(s) }

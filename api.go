package rulpm

import (
	"context"
	"database/sql"

	base "github.com/lucianolorenti/rul-pm/pkg/rulpm"
)

// Re-exported errors for convenience.
var (
	ErrAcquisition         = base.ErrAcquisition
	ErrUnsafeArchivePath   = base.ErrUnsafeArchivePath
	ErrUnrecognizedFailure = base.ErrUnrecognizedFailure
	ErrUnknownFailureType  = base.ErrUnknownFailureType
	ErrMissingSensorStream = base.ErrMissingSensorStream
	ErrMissingColumn       = base.ErrMissingColumn
	ErrCorruptManifest     = base.ErrCorruptManifest
	ErrIndexOutOfRange     = base.ErrIndexOutOfRange
	ErrChannelSinkClosed   = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import github.com/lucianolorenti/rul-pm directly.
type (
	Config          = base.Config
	DatasetConfig   = base.DatasetConfig
	DownloadConfig  = base.DownloadConfig
	TimescaleConfig = base.TimescaleConfig
	MetricsConfig   = base.MetricsConfig
	LogConfig       = base.LogConfig
	Dataset         = base.Dataset
	DatasetOption   = base.DatasetOption
	LivesDataset    = base.LivesDataset
	Frame           = base.Frame
	Column          = base.Column
	FailureType     = base.FailureType
	ManifestEntry   = base.ManifestEntry
	Observability   = base.Observability
	LifeStore       = base.LifeStore
	ValidityCache   = base.ValidityCache
	Fetcher         = base.Fetcher
	Extractor       = base.Extractor
	ProgressFunc    = base.ProgressFunc
	Sink            = base.Sink
	ExportedLife    = base.ExportedLife
	LifeHandler     = base.LifeHandler
)

const (
	FlowCoolPressureDroppedBelowLimit        = base.FlowCoolPressureDroppedBelowLimit
	FlowcoolPressureTooHighCheckFlowcoolPump = base.FlowcoolPressureTooHighCheckFlowcoolPump
	FlowcoolLeak                             = base.FlowcoolLeak
	RULColumn                                = base.RULColumn
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

func FailureTypes() []FailureType {
	return base.FailureTypes()
}

func ParseFailureType(s string) (FailureType, error) {
	return base.ParseFailureType(s)
}

// Dataset and options.
func NewDataset(ctx context.Context, cfg *Config, opts ...DatasetOption) (*Dataset, error) {
	return base.NewDataset(ctx, cfg, opts...)
}

func Open(ctx context.Context, path string, opts ...DatasetOption) (*Dataset, error) {
	return base.Open(ctx, path, opts...)
}

func WithLifeStore(s LifeStore) DatasetOption {
	return base.WithLifeStore(s)
}

func WithValidityCache(c ValidityCache) DatasetOption {
	return base.WithValidityCache(c)
}

func WithFetcher(f Fetcher) DatasetOption {
	return base.WithFetcher(f)
}

func WithExtractor(e Extractor) DatasetOption {
	return base.WithExtractor(e)
}

func WithObservability(obs Observability) DatasetOption {
	return base.WithObservability(obs)
}

func WithProgress(fn ProgressFunc) DatasetOption {
	return base.WithProgress(fn)
}

func WithRebuild() DatasetOption {
	return base.WithRebuild()
}

// Sink adapters.
func NewCallbackSink(name string, fn LifeHandler) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan ExportedLife, func()) {
	return base.NewChannelSink(name, buffer)
}

func OpenTimescaleSink(cfg TimescaleConfig) (Sink, *sql.DB, error) {
	return base.OpenTimescaleSink(cfg)
}

package rulpm

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lucianolorenti/rul-pm/internal/adapters/archive"
	"github.com/lucianolorenti/rul-pm/internal/adapters/fetch"
	"github.com/lucianolorenti/rul-pm/internal/adapters/lifestore"
	"github.com/lucianolorenti/rul-pm/internal/adapters/observability"
	"github.com/lucianolorenti/rul-pm/internal/app/pipeline"
	"github.com/lucianolorenti/rul-pm/internal/app/query"
	"github.com/lucianolorenti/rul-pm/internal/domain"
	"github.com/lucianolorenti/rul-pm/internal/ports"
)

// LivesDataset is the indexed view model-training code consumes.
type LivesDataset interface {
	NTimeSeries() int
	TimeSeries(i int) (*Frame, error)
	RULColumn() string
	Durations() ([]float64, error)
}

// Dataset exposes the valid lives of the PHM 2018 training split. Construction
// prepares the data on disk if needed and runs the validity pass; lives are
// read lazily afterwards.
type Dataset struct {
	cfg     *Config
	layout  pipeline.Layout
	store   LifeStore
	cache   ValidityCache
	obs     Observability
	filter  query.PostFilter
	rulStep float64
	lives   []ManifestEntry
}

var _ LivesDataset = (*Dataset)(nil)

// NewDataset prepares the dataset under cfg.Dataset.Root and selects the lives
// matching the configured tools and failure types that survive the post-filter.
// cfg is finalized in place.
func NewDataset(ctx context.Context, cfg *Config, opts ...DatasetOption) (*Dataset, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}

	var overrides datasetOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	layout := pipeline.NewLayout(cfg.Dataset.Root)

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs(nil, prometheus.NewRegistry())
	}

	store := overrides.store
	if store == nil {
		gs, err := lifestore.NewGzipStore(layout.LivesDir())
		if err != nil {
			return nil, err
		}
		store = gs
	}

	cache := overrides.cache
	if cache == nil && cfg.Dataset.ValidityCache {
		cache, _ = store.(ValidityCache)
	}

	fetcher := overrides.fetcher
	if fetcher == nil {
		fetcher = fetch.NewHTTPFetcher(cfg.Download.Timeout, cfg.Download.UserAgent)
	}
	extractor := overrides.extractor
	if extractor == nil {
		extractor = defaultExtractor()
	}

	preparer := &pipeline.Preparer{
		Layout:    layout,
		URL:       cfg.Dataset.URL,
		Store:     store,
		Fetcher:   fetcher,
		Extractor: extractor,
		Obs:       obs,
		Progress:  overrides.progress,
	}
	prepare := preparer.Prepare
	if overrides.rebuild {
		prepare = preparer.Rebuild
	}
	if err := prepare(ctx); err != nil {
		return nil, err
	}

	d := &Dataset{
		cfg:    cfg,
		layout: layout,
		store:  store,
		cache:  cache,
		obs:    obs,
		filter: query.PostFilter{
			StatusColumn: cfg.Dataset.StatusColumn,
			StatusActive: *cfg.Dataset.StatusActive,
			UsageColumns: cfg.Dataset.UsageColumns,
		},
		rulStep: cfg.Dataset.RULStep,
	}

	candidates, err := d.candidates()
	if err != nil {
		return nil, err
	}
	valid, err := d.validate(ctx, candidates)
	if err != nil {
		return nil, err
	}
	d.lives = valid

	obs.SetGauge(observability.MetricValidLives, float64(len(valid)))
	obs.LogInfo("dataset_ready",
		ports.Field{Key: "candidates", Value: len(candidates)},
		ports.Field{Key: "valid", Value: len(valid)},
	)
	return d, nil
}

// candidates reads the manifest and applies the tool and failure-type filters.
func (d *Dataset) candidates() ([]ManifestEntry, error) {
	entries, err := d.store.ReadManifest()
	if err != nil {
		return nil, err
	}

	failures, err := d.cfg.Dataset.Failures()
	if err != nil {
		return nil, err
	}
	texts := make(map[string]struct{}, len(failures))
	for _, f := range failures {
		texts[f.Text()] = struct{}{}
	}
	tools := make(map[string]struct{}, len(d.cfg.Dataset.Tools))
	for _, t := range d.cfg.Dataset.Tools {
		tools[t] = struct{}{}
	}

	out := make([]ManifestEntry, 0, len(entries))
	for _, e := range entries {
		if _, ok := texts[e.FailureType]; !ok {
			continue
		}
		if len(tools) > 0 {
			if _, ok := tools[e.Tool]; !ok {
				continue
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// NTimeSeries is the number of valid lives.
func (d *Dataset) NTimeSeries() int { return len(d.lives) }

// RULColumn names the target column of every frame returned by TimeSeries.
func (d *Dataset) RULColumn() string { return domain.RULColumn }

// TimeSeries loads the i-th valid life, applies the post-filter and replaces
// RUL with a countdown of cfg.Dataset.RULStep per row.
func (d *Dataset) TimeSeries(i int) (*Frame, error) {
	if i < 0 || i >= len(d.lives) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", domain.ErrIndexOutOfRange, i, len(d.lives))
	}

	start := time.Now()
	f, err := d.load(d.lives[i])
	if err != nil {
		return nil, err
	}
	f.SetNum(domain.RULColumn, query.CountdownRUL(f.Len(), d.rulStep))
	d.obs.ObserveLatency(observability.MetricLifeLoadSeconds, time.Since(start).Seconds())
	return f, nil
}

func (d *Dataset) load(entry ManifestEntry) (*Frame, error) {
	raw, err := d.store.Get(entry.Filename)
	if err != nil {
		return nil, err
	}
	return d.filter.Apply(raw)
}

// Lives returns the manifest rows of the valid lives in index order.
func (d *Dataset) Lives() []ManifestEntry {
	return append([]ManifestEntry(nil), d.lives...)
}

// Life returns the manifest row of the i-th valid life.
func (d *Dataset) Life(i int) (ManifestEntry, error) {
	if i < 0 || i >= len(d.lives) {
		return ManifestEntry{}, fmt.Errorf("%w: %d not in [0, %d)", domain.ErrIndexOutOfRange, i, len(d.lives))
	}
	return d.lives[i], nil
}

// Durations returns the total length of every valid life in RUL units, which
// is the RUL of its first row.
func (d *Dataset) Durations() ([]float64, error) {
	out := make([]float64, len(d.lives))
	for i := range d.lives {
		f, err := d.TimeSeries(i)
		if err != nil {
			return nil, err
		}
		rul, _ := f.Num(domain.RULColumn)
		out[i] = rul[0]
	}
	return out, nil
}

// Config returns the finalized configuration the dataset was built with.
func (d *Dataset) Config() *Config { return d.cfg }

// LivesDir is the folder holding the life blobs and the manifest.
func (d *Dataset) LivesDir() string { return d.layout.LivesDir() }

// Open loads the YAML config at path and builds the dataset from it.
func Open(ctx context.Context, path string, opts ...DatasetOption) (*Dataset, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return NewDataset(ctx, cfg, opts...)
}

func defaultExtractor() Extractor {
	return archive.TarGz{ExpectedMembers: pipeline.ArchiveMembers}
}

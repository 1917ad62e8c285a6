package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lucianolorenti/rul-pm/internal/adapters/observability"
	"github.com/lucianolorenti/rul-pm/internal/ports"
)

// Preparer owns every stage that turns the published archive into stored lives.
type Preparer struct {
	Layout    Layout
	URL       string
	Store     ports.LifeStore
	Fetcher   ports.Fetcher
	Extractor ports.Extractor
	Obs       ports.Observability
	Progress  ports.ProgressFunc
}

// Prepare is idempotent: an existing manifest means the dataset is ready and
// nothing is touched.
func (p *Preparer) Prepare(ctx context.Context) error {
	if p.Store.ManifestExists() {
		return nil
	}
	return p.run(ctx)
}

// Rebuild re-segments the lives even when a manifest exists. Raw data is
// downloaded only if it is missing.
func (p *Preparer) Rebuild(ctx context.Context) error {
	return p.run(ctx)
}

func (p *Preparer) run(ctx context.Context) error {
	if p.Store == nil || p.Obs == nil {
		return fmt.Errorf("preparer needs a store and observability")
	}
	runID := uuid.NewString()
	p.Obs.LogInfo("preparation_started",
		ports.Field{Key: "run_id", Value: runID},
		ports.Field{Key: "root", Value: p.Layout.Root},
	)

	if !isDir(p.Layout.TrainDir()) {
		if p.Fetcher == nil || p.Extractor == nil {
			return fmt.Errorf("raw data missing under %s and no acquisition configured", p.Layout.RawDir())
		}
		if err := PrepareRaw(ctx, p.Layout, p.URL, p.Fetcher, p.Extractor, p.Obs, p.Progress); err != nil {
			p.Obs.LogError("preparation_failed", err, ports.Field{Key: "run_id", Value: runID}, ports.Field{Key: "stage", Value: "acquire"})
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := SegmentDataset(p.Layout, p.Store, p.Obs, p.Progress)
	if err != nil {
		p.Obs.LogError("preparation_failed", err, ports.Field{Key: "run_id", Value: runID}, ports.Field{Key: "stage", Value: StageSegment})
		return err
	}

	p.Obs.IncCounter(observability.MetricPreparationRuns, 1)
	p.Obs.LogInfo("preparation_complete",
		ports.Field{Key: "run_id", Value: runID},
		ports.Field{Key: "lives", Value: len(entries)},
	)
	return nil
}

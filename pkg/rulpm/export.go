package rulpm

import (
	"context"
	"fmt"

	"github.com/lucianolorenti/rul-pm/internal/ports"
)

// Export writes every valid life, as returned by TimeSeries, to s in index
// order. It stops at the first error and reports how many lives were written.
func (d *Dataset) Export(ctx context.Context, s Sink) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("sink is required")
	}
	for i, entry := range d.lives {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		f, err := d.TimeSeries(i)
		if err != nil {
			return i, err
		}
		if err := s.WriteLife(entry, f); err != nil {
			d.obs.LogError("export_failed", err,
				ports.Field{Key: "sink", Value: s.Name()},
				ports.Field{Key: "life", Value: entry.Filename},
			)
			return i, fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	d.obs.LogInfo("export_complete",
		ports.Field{Key: "sink", Value: s.Name()},
		ports.Field{Key: "lives", Value: len(d.lives)},
	)
	return len(d.lives), nil
}

package sink

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/lucianolorenti/rul-pm/internal/domain"
	"github.com/lucianolorenti/rul-pm/internal/ports"
)

const defaultBatchRows = 500

// TimescaleSink exports filtered lives into a (hyper)table, one row per sample.
type TimescaleSink struct {
	db        *sql.DB
	tableName string
	batchRows int
}

func NewTimescaleSink(db *sql.DB, table string) *TimescaleSink {
	return &TimescaleSink{db: db, tableName: table, batchRows: defaultBatchRows}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

func (t *TimescaleSink) WriteLife(entry domain.ManifestEntry, f *domain.Frame) error {
	rul, _ := f.Num(domain.RULColumn)
	for start := 0; start < f.Len(); start += t.batchRows {
		end := start + t.batchRows
		if end > f.Len() {
			end = f.Len()
		}
		if err := t.writeBatch(entry, f, rul, start, end); err != nil {
			return fmt.Errorf("%s rows %d-%d: %w", entry.Filename, start, end, err)
		}
	}
	return nil
}

func (t *TimescaleSink) writeBatch(entry domain.ManifestEntry, f *domain.Frame, rul []float64, start, end int) error {
	// idempotent re-export via the (life, ts) unique key
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.tableName)
	b.WriteString(" (tool, life, failure_type, ts, rul, values) VALUES ")

	args := make([]any, 0, (end-start)*6)
	for r := start; r < end; r++ {
		if r > start {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4, len(args)+5, len(args)+6))

		vals, err := json.Marshal(rowValues(f, r))
		if err != nil {
			return fmt.Errorf("marshal values: %w", err)
		}
		var remaining any
		if rul != nil && !math.IsNaN(rul[r]) {
			remaining = rul[r]
		}
		args = append(args,
			entry.Tool,
			entry.Filename,
			entry.FailureType,
			f.Time[r],
			remaining,
			vals,
		)
	}

	b.WriteString(" ON CONFLICT (life, ts) DO NOTHING")

	_, err := t.db.Exec(b.String(), args...)
	return err
}

func rowValues(f *domain.Frame, r int) map[string]any {
	out := make(map[string]any, len(f.Columns))
	for _, c := range f.Columns {
		if c.Name == domain.RULColumn {
			continue
		}
		if c.IsText() {
			out[c.Name] = c.Text[r]
			continue
		}
		if math.IsNaN(c.Num[r]) {
			out[c.Name] = nil
			continue
		}
		out[c.Name] = c.Num[r]
	}
	return out
}

var _ ports.Sink = (*TimescaleSink)(nil)

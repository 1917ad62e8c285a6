package pipeline

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lucianolorenti/rul-pm/internal/adapters/csvio"
	"github.com/lucianolorenti/rul-pm/internal/adapters/observability"
	"github.com/lucianolorenti/rul-pm/internal/domain"
	"github.com/lucianolorenti/rul-pm/internal/ports"
)

const (
	StageSegment = "segment"
	toolIDLen    = 6
)

// SplitLives joins a tool's sensor stream with its fault log and cuts it into
// lives. Each row belongs to the first fault at or after its timestamp; rows
// after the last fault belong to no life and are dropped.
func SplitLives(tool string, stream, faults *domain.Frame) ([]domain.Life, error) {
	names, ok := faults.Column(domain.FaultNameColumn)
	if !ok || !names.IsText() {
		return nil, fmt.Errorf("%w: fault log of %s has no %q text column", domain.ErrMissingColumn, tool, domain.FaultNameColumn)
	}
	stream = stream.DropNA().SortByTime()

	// fault numbers follow file order, the asof search runs over time order
	order := make([]int, 0, faults.Len())
	for i, t := range faults.Time {
		if !math.IsNaN(t) {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool { return faults.Time[order[a]] < faults.Time[order[b]] })
	times := make([]float64, len(order))
	for i, idx := range order {
		times[i] = faults.Time[idx]
	}

	groups := make(map[int][]int)
	for r, t := range stream.Time {
		k := sort.SearchFloat64s(times, t)
		if k == len(times) {
			continue
		}
		fault := order[k]
		groups[fault] = append(groups[fault], r)
	}

	var lives []domain.Life
	for fault := 0; fault < faults.Len(); fault++ {
		rows := groups[fault]
		if len(rows) == 0 {
			continue
		}

		failure, ok := domain.MatchFailureType(names.Text[fault])
		if !ok {
			return nil, fmt.Errorf("%w: tool %s fault %d: %q", domain.ErrUnrecognizedFailure, tool, fault, names.Text[fault])
		}

		frame := stream.Take(rows)
		attachFault(frame, faults, fault)
		frame.SetNum(domain.RULColumn, elapsedRUL(frame.Time))

		lives = append(lives, domain.Life{
			Index:   fault,
			Tool:    tool,
			Failure: failure,
			Frame:   frame,
		})
	}
	return lives, nil
}

// attachFault copies the fault row's columns onto every row of the life, the
// way a forward asof merge does. Columns already present in the stream win.
func attachFault(frame, faults *domain.Frame, fault int) {
	n := frame.Len()
	for _, c := range faults.Columns {
		if _, exists := frame.Column(c.Name); exists {
			continue
		}
		if c.IsText() {
			vals := make([]string, n)
			for i := range vals {
				vals[i] = c.Text[fault]
			}
			frame.SetText(c.Name, vals)
			continue
		}
		frame.SetNum(c.Name, repeat(c.Num[fault], n))
	}
	frame.SetNum(domain.FaultNumberColumn, repeat(float64(fault), n))
}

// elapsedRUL is the time left until the last row of the life.
func elapsedRUL(times []float64) []float64 {
	out := make([]float64, len(times))
	if len(times) == 0 {
		return out
	}
	last := times[len(times)-1]
	for i, t := range times {
		out[i] = last - t
	}
	return out
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// SegmentDataset rebuilds every life and the manifest from raw/train.
func SegmentDataset(layout Layout, store ports.LifeStore, obs ports.Observability, progress ports.ProgressFunc) ([]domain.ManifestEntry, error) {
	streams, err := filesByTool(layout.TrainDir())
	if err != nil {
		return nil, err
	}
	faultLogs, err := filesByTool(layout.FaultsDir())
	if err != nil {
		return nil, err
	}

	tools := make([]string, 0, len(faultLogs))
	for tool := range faultLogs {
		tools = append(tools, tool)
	}
	sort.Strings(tools)

	if err := store.Reset(); err != nil {
		return nil, fmt.Errorf("reset lives: %w", err)
	}

	var entries []domain.ManifestEntry
	for i, tool := range tools {
		streamPath, ok := streams[tool]
		if !ok {
			return nil, fmt.Errorf("%w: tool %s", domain.ErrMissingSensorStream, tool)
		}
		obs.LogInfo("segmenting_tool", ports.Field{Key: "tool", Value: tool}, ports.Field{Key: "file", Value: streamPath})

		stream, err := csvio.ReadFrameFile(streamPath)
		if err != nil {
			return nil, err
		}
		faults, err := csvio.ReadFrameFile(faultLogs[tool])
		if err != nil {
			return nil, err
		}

		lives, err := SplitLives(tool, stream, faults)
		if err != nil {
			return nil, err
		}
		for _, life := range lives {
			if err := store.Put(life.Filename(), life.Frame); err != nil {
				return nil, fmt.Errorf("store %s: %w", life.Filename(), err)
			}
			entries = append(entries, life.ManifestEntry())
		}
		obs.IncCounter(observability.MetricLivesWritten, float64(len(lives)))

		if progress != nil {
			progress(StageSegment, int64(i+1), int64(len(tools)))
		}
	}

	if err := store.WriteManifest(entries); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return entries, nil
}

// filesByTool maps the six-character unit prefix of every CSV in dir to its path.
func filesByTool(dir string) (map[string]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	out := make(map[string]string, len(paths))
	for _, p := range paths {
		out[toolID(p)] = p
	}
	return out, nil
}

func toolID(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if len(stem) > toolIDLen {
		return stem[:toolIDLen]
	}
	return stem
}

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/lucianolorenti/rul-pm/internal/durations"
	"github.com/lucianolorenti/rul-pm/internal/weibull"
)

type durationReport struct {
	Summary   durations.Summary `json:"summary"`
	Histogram []durations.Bin   `json:"histogram"`
	Weibull   *weibullReport    `json:"weibull,omitempty"`
}

type weibullReport struct {
	weibull.Params
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Mode   float64 `json:"mode"`
}

func buildDurationReport(values []float64, bins int, fit bool) (durationReport, error) {
	rep := durationReport{
		Summary:   durations.Summarize(values),
		Histogram: durations.Histogram(values, bins),
	}
	if rep.Summary.Count == 0 {
		// NaN statistics do not encode as JSON
		rep.Summary = durations.Summary{}
	}
	if fit && len(values) > 0 {
		p, err := weibull.Fit(values, nil)
		if err != nil {
			return rep, err
		}
		rep.Weibull = &weibullReport{Params: p, Mean: p.Mean(), Median: p.Median(), Mode: p.Mode()}
	}
	return rep, nil
}

func durationsCommand(args []string) error {
	fs := flag.NewFlagSet("durations", flag.ExitOnError)
	cfgPath := configFlag(fs)
	bins := fs.Int("bins", 15, "Histogram bins")
	units := fs.String("units", "m", "Units shown in labels")
	label := fs.String("label", "Train", "Series label in plots")
	threshold := fs.Float64("threshold", 0, "Leave durations at or above this out of the histogram (0 keeps all)")
	histPath := fs.String("hist", "", "Write a histogram to this .png/.svg/.pdf path")
	boxPath := fs.String("box", "", "Write a boxplot to this .png/.svg/.pdf path")
	fit := fs.Bool("weibull", false, "Fit a Weibull distribution to the durations")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	ds, err := e.open(ctx)
	if err != nil {
		return err
	}
	values, err := ds.Durations()
	if err != nil {
		return err
	}

	rep, err := buildDurationReport(values, *bins, *fit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return err
	}

	series := []durations.Series{{Label: *label, Values: values}}
	if *histPath != "" {
		opts := durations.DefaultHistogramOptions()
		opts.Bins = *bins
		opts.Units = *units
		opts.Threshold = *threshold
		p, err := durations.HistogramPlot(series, opts)
		if err != nil {
			return err
		}
		if err := savePlot(p, *histPath, 8*vg.Inch, 4*vg.Inch); err != nil {
			return err
		}
	}
	if *boxPath != "" {
		var hlines []durations.Line
		if rep.Weibull != nil {
			hlines = append(hlines, durations.Line{At: rep.Weibull.Median, Label: "Weibull median"})
		}
		p, err := durations.BoxPlot(series, durations.BoxOptions{Units: *units, HLines: hlines})
		if err != nil {
			return err
		}
		if err := savePlot(p, *boxPath, 4*vg.Inch, 6*vg.Inch); err != nil {
			return err
		}
	}
	return nil
}

func savePlot(p *plot.Plot, path string, w, h vg.Length) error {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if format == "" {
		return errors.New("plot path needs an extension such as .png or .svg")
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := durations.Save(p, file, format, w, h); err != nil {
		file.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	return file.Close()
}

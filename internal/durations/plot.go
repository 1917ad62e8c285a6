package durations

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNoDurations is returned when every series to plot is empty.
var ErrNoDurations = errors.New("durations: nothing to plot")

// Line is a reference line at a coordinate with a legend label.
type Line struct {
	At    float64
	Label string
}

type HistogramOptions struct {
	XLabel    string
	Units     string
	Bins      int
	VLines    []Line
	AddMean   bool
	AddMedian bool
	// Threshold drops durations at or above it from the bars; zero keeps all.
	// Mean and median lines are computed before the threshold applies.
	Threshold float64
}

// DefaultHistogramOptions mirrors the usual cycle-duration figure.
func DefaultHistogramOptions() HistogramOptions {
	return HistogramOptions{
		XLabel:    "Cycle Duration",
		Units:     "m",
		Bins:      15,
		AddMean:   true,
		AddMedian: true,
	}
}

// HistogramPlot draws one histogram per series, overlaid, with vertical lines
// for the requested statistics and every extra VLine.
func HistogramPlot(series []Series, opts HistogramOptions) (*plot.Plot, error) {
	if opts.Bins <= 0 {
		opts.Bins = 15
	}
	p := plot.New()
	p.X.Label.Text = axisLabel(opts.XLabel, opts.Units)
	p.Y.Label.Text = "Number of run-to-failure cycles"
	p.Legend.Top = true

	vlines := append([]Line(nil), opts.VLines...)
	var maxCount float64
	drawn := 0
	for i, s := range series {
		prefix := s.Label
		if prefix != "" {
			prefix += " "
		}
		if len(s.Values) > 0 {
			sum := Summarize(s.Values)
			if opts.AddMean {
				vlines = append(vlines, Line{At: sum.Mean, Label: prefix + "Mean"})
			}
			if opts.AddMedian {
				vlines = append(vlines, Line{At: sum.Median, Label: prefix + "Median"})
			}
		}

		values := s.Values
		if opts.Threshold > 0 {
			values = Below(values, opts.Threshold)
		}
		if len(values) == 0 {
			continue
		}
		h, err := plotter.NewHist(plotter.Values(values), opts.Bins)
		if err != nil {
			return nil, fmt.Errorf("histogram %q: %w", s.Label, err)
		}
		h.FillColor = withAlpha(plotutil.Color(i), 0xb0)
		for _, b := range h.Bins {
			maxCount = max(maxCount, b.Weight)
		}
		p.Add(h)
		if s.Label != "" {
			p.Legend.Add(s.Label, h)
		}
		drawn++
	}
	if drawn == 0 {
		return nil, ErrNoDurations
	}

	for i, l := range vlines {
		line, err := plotter.NewLine(plotter.XYs{{X: l.At, Y: 0}, {X: l.At, Y: maxCount}})
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = plotutil.Color(len(series) + i)
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s: %.2f [%s]", l.Label, l.At, opts.Units), line)
	}
	return p, nil
}

type BoxOptions struct {
	YLabel string
	Units  string
	HLines []Line
	// MaxY caps the y axis when positive.
	MaxY float64
}

// BoxPlot draws one box per series at nominal x positions named by the labels.
func BoxPlot(series []Series, opts BoxOptions) (*plot.Plot, error) {
	p := plot.New()
	if opts.YLabel == "" {
		opts.YLabel = "Cycle Duration"
	}
	p.Y.Label.Text = opts.YLabel

	names := make([]string, len(series))
	drawn := 0
	for i, s := range series {
		names[i] = s.Label
		if len(s.Values) == 0 {
			continue
		}
		b, err := plotter.NewBoxPlot(vg.Points(30), float64(i), plotter.Values(s.Values))
		if err != nil {
			return nil, fmt.Errorf("boxplot %q: %w", s.Label, err)
		}
		b.FillColor = withAlpha(plotutil.Color(i), 0x80)
		p.Add(b)
		drawn++
	}
	if drawn == 0 {
		return nil, ErrNoDurations
	}
	p.NominalX(names...)

	for i, l := range opts.HLines {
		line, err := plotter.NewLine(plotter.XYs{{X: -0.5, Y: l.At}, {X: float64(len(series)) - 0.5, Y: l.At}})
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = plotutil.Color(len(series) + i)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s: %.2f %s", l.Label, l.At, opts.Units), line)
	}
	if opts.MaxY > 0 {
		p.Y.Max = opts.MaxY
	}
	return p, nil
}

// Save renders p in format ("png", "svg", "pdf", ...) to w.
func Save(p *plot.Plot, w io.Writer, format string, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

func axisLabel(label, units string) string {
	if units == "" {
		return label
	}
	return fmt.Sprintf("%s [%s]", label, units)
}

func withAlpha(c color.Color, a uint8) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: a}
}

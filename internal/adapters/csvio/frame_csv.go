package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/lucianolorenti/rul-pm/internal/domain"
)

const (
	// kindRowTag marks the optional row after the header that records the
	// kind of every column, written by WriteTypedFrame.
	kindRowTag = "#kind"
	kindNum    = "num"
	kindText   = "text"
)

// ReadFrame parses a CSV with a header row. The time column becomes the frame
// index. When the header is followed by a kind row the recorded kinds are
// used; otherwise a column is numeric when all of its non-empty cells parse as
// floats and text otherwise. Unnamed columns (a serialized row index) are skipped.
func ReadFrame(r io.Reader) (*domain.Frame, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv: empty input")
		}
		return nil, fmt.Errorf("csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	timeIdx := -1
	for i, h := range header {
		if h == domain.TimeColumn {
			timeIdx = i
			break
		}
	}
	if timeIdx < 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrMissingColumn, domain.TimeColumn)
	}

	var kinds []string
	cells := make([][]string, len(header))
	for first := true; ; first = false {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv record: %w", err)
		}
		if first && rec[timeIdx] == kindRowTag {
			kinds = rec
			continue
		}
		for i, v := range rec {
			cells[i] = append(cells[i], v)
		}
	}

	timeVals, ok := parseFloats(cells[timeIdx])
	if !ok {
		return nil, fmt.Errorf("csv: column %q is not numeric", domain.TimeColumn)
	}
	f := &domain.Frame{Time: timeVals}
	for i, name := range header {
		if i == timeIdx || name == "" {
			continue
		}
		kind := ""
		if kinds != nil {
			kind = kinds[i]
		}
		switch kind {
		case kindText:
			f.Columns = append(f.Columns, textColumn(name, cells[i]))
		case kindNum:
			nums, ok := parseFloats(cells[i])
			if !ok {
				return nil, fmt.Errorf("csv: column %q is not numeric", name)
			}
			f.Columns = append(f.Columns, domain.Column{Name: name, Num: nums})
		case "":
			if nums, ok := parseFloats(cells[i]); ok {
				f.Columns = append(f.Columns, domain.Column{Name: name, Num: nums})
				continue
			}
			f.Columns = append(f.Columns, textColumn(name, cells[i]))
		default:
			return nil, fmt.Errorf("csv: column %q has unknown kind %q", name, kind)
		}
	}
	return f, nil
}

func textColumn(name string, cells []string) domain.Column {
	text := make([]string, len(cells))
	copy(text, cells)
	return domain.Column{Name: name, Text: text}
}

// ReadFrameFile is ReadFrame over a file on disk.
func ReadFrameFile(path string) (*domain.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	f, err := ReadFrame(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// WriteFrame writes the frame with the time column first. Missing cells are
// written empty and floats use the shortest exact representation.
func WriteFrame(w io.Writer, f *domain.Frame) error {
	return writeFrame(w, f, false)
}

// WriteTypedFrame is WriteFrame plus a kind row after the header, so text
// columns holding numbers or nothing at all read back as text.
func WriteTypedFrame(w io.Writer, f *domain.Frame) error {
	return writeFrame(w, f, true)
}

func writeFrame(w io.Writer, f *domain.Frame, typed bool) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Names()); err != nil {
		return err
	}
	rec := make([]string, len(f.Columns)+1)
	if typed {
		rec[0] = kindRowTag
		for i, c := range f.Columns {
			rec[i+1] = kindNum
			if c.IsText() {
				rec[i+1] = kindText
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	for r := 0; r < f.Len(); r++ {
		rec[0] = formatFloat(f.Time[r])
		for i, c := range f.Columns {
			if c.IsText() {
				rec[i+1] = c.Text[r]
			} else {
				rec[i+1] = formatFloat(c.Num[r])
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func parseFloats(cells []string) ([]float64, bool) {
	out := make([]float64, len(cells))
	for i, s := range cells {
		s = strings.TrimSpace(s)
		if s == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

package csvio

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/lucianolorenti/rul-pm/internal/domain"
)

func TestReadFrameDetectsColumnKinds(t *testing.T) {
	in := "time,Tool,IONGAUGEPRESSURE,FIXTURESHUTTERPOSITION\n" +
		"10,01M01,1.5,1\n" +
		"12,01M01,,0\n"

	f, err := ReadFrame(strings.NewReader(in))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if f.Len() != 2 || f.Time[1] != 12 {
		t.Fatalf("unexpected time index %v", f.Time)
	}
	tool, ok := f.Column("Tool")
	if !ok || !tool.IsText() {
		t.Fatalf("expected Tool to be text, got %+v", tool)
	}
	p, ok := f.Num("IONGAUGEPRESSURE")
	if !ok || p[0] != 1.5 || !math.IsNaN(p[1]) {
		t.Fatalf("unexpected pressure values %v", p)
	}
}

func TestReadFrameSkipsUnnamedIndexColumn(t *testing.T) {
	in := ",time,v\n0,1,2\n1,2,3\n"
	f, err := ReadFrame(strings.NewReader(in))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(f.Columns) != 1 || f.Columns[0].Name != "v" {
		t.Fatalf("unexpected columns %+v", f.Columns)
	}
}

func TestReadFrameRequiresTime(t *testing.T) {
	_, err := ReadFrame(strings.NewReader("a,b\n1,2\n"))
	if !errors.Is(err, domain.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	f := &domain.Frame{
		Time: []float64{1, 2, 3},
		Columns: []domain.Column{
			{Name: "v", Num: []float64{0.1, math.NaN(), 1e-9}},
			{Name: domain.FaultNameColumn, Text: []string{"Flowcool leak", "Flowcool leak", "Flowcool leak"}},
			{Name: domain.RULColumn, Num: []float64{2, 1, 0}},
		},
	}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, f); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.Len() != f.Len() {
		t.Fatalf("expected %d rows, got %d", f.Len(), got.Len())
	}
	want := f.Names()
	names := got.Names()
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected columns %v, got %v", want, names)
		}
	}
	v, _ := got.Num("v")
	if v[0] != 0.1 || !math.IsNaN(v[1]) || v[2] != 1e-9 {
		t.Fatalf("values not preserved: %v", v)
	}
}

func TestTypedRoundTripKeepsTextColumns(t *testing.T) {
	f := &domain.Frame{
		Time: []float64{1, 2},
		Columns: []domain.Column{
			{Name: "recipe", Text: []string{"007", "010"}},
			{Name: "note", Text: []string{"", ""}},
			{Name: "v", Num: []float64{3, math.NaN()}},
		},
	}

	var buf bytes.Buffer
	if err := WriteTypedFrame(&buf, f); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("kind row must not become a data row, got %d rows", got.Len())
	}
	recipe, ok := got.Column("recipe")
	if !ok || !recipe.IsText() || recipe.Text[0] != "007" || recipe.Text[1] != "010" {
		t.Fatalf("recipe should stay text, got %+v", recipe)
	}
	note, ok := got.Column("note")
	if !ok || !note.IsText() || note.Text[0] != "" {
		t.Fatalf("empty text column should stay text, got %+v", note)
	}
	v, ok := got.Num("v")
	if !ok || v[0] != 3 || !math.IsNaN(v[1]) {
		t.Fatalf("numeric column not preserved: %v", v)
	}
}

func TestReadFrameRejectsBadKind(t *testing.T) {
	_, err := ReadFrame(strings.NewReader("time,v\n#kind,blob\n1,2\n"))
	if err == nil {
		t.Fatalf("expected an error for an unknown column kind")
	}
	_, err = ReadFrame(strings.NewReader("time,v\n#kind,num\n1,abc\n"))
	if err == nil {
		t.Fatalf("expected an error for text in a numeric column")
	}
}

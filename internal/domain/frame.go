package domain

import (
	"math"
	"sort"
)

// TimeColumn is the join key shared by sensor streams and fault logs.
const TimeColumn = "time"

// Column is a named channel of a Frame. Exactly one of Num or Text is set.
type Column struct {
	Name string
	Num  []float64
	Text []string
}

// IsText reports whether the column holds free text instead of numbers.
func (c Column) IsText() bool { return c.Text != nil }

func (c Column) len() int {
	if c.IsText() {
		return len(c.Text)
	}
	return len(c.Num)
}

func (c Column) missing(i int) bool {
	if c.IsText() {
		return c.Text[i] == ""
	}
	return math.IsNaN(c.Num[i])
}

func (c Column) take(rows []int) Column {
	out := Column{Name: c.Name}
	if c.IsText() {
		out.Text = make([]string, len(rows))
		for i, r := range rows {
			out.Text[i] = c.Text[r]
		}
		return out
	}
	out.Num = make([]float64, len(rows))
	for i, r := range rows {
		out.Num[i] = c.Num[r]
	}
	return out
}

// Frame is a column-oriented table indexed by time. Missing numeric cells are
// NaN, missing text cells are empty strings.
type Frame struct {
	Time    []float64
	Columns []Column
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Time)
}

// Names lists the time column followed by every channel in order.
func (f *Frame) Names() []string {
	names := make([]string, 0, len(f.Columns)+1)
	names = append(names, TimeColumn)
	for _, c := range f.Columns {
		names = append(names, c.Name)
	}
	return names
}

// Column looks a channel up by name.
func (f *Frame) Column(name string) (*Column, bool) {
	for i := range f.Columns {
		if f.Columns[i].Name == name {
			return &f.Columns[i], true
		}
	}
	return nil, false
}

// Num returns the values of a numeric channel.
func (f *Frame) Num(name string) ([]float64, bool) {
	c, ok := f.Column(name)
	if !ok || c.IsText() {
		return nil, false
	}
	return c.Num, true
}

// SetNum replaces the named channel, appending it when absent.
func (f *Frame) SetNum(name string, values []float64) {
	if c, ok := f.Column(name); ok {
		c.Num = values
		c.Text = nil
		return
	}
	f.Columns = append(f.Columns, Column{Name: name, Num: values})
}

// SetText replaces the named channel with text values, appending it when absent.
func (f *Frame) SetText(name string, values []string) {
	if c, ok := f.Column(name); ok {
		c.Text = values
		c.Num = nil
		return
	}
	f.Columns = append(f.Columns, Column{Name: name, Text: values})
}

// Take builds a new frame holding the given rows in the given order.
func (f *Frame) Take(rows []int) *Frame {
	out := &Frame{
		Time:    make([]float64, len(rows)),
		Columns: make([]Column, len(f.Columns)),
	}
	for i, r := range rows {
		out.Time[i] = f.Time[r]
	}
	for i, c := range f.Columns {
		out.Columns[i] = c.take(rows)
	}
	return out
}

// Filter keeps the rows whose mask entry is true.
func (f *Frame) Filter(keep []bool) *Frame {
	rows := make([]int, 0, len(keep))
	for i, k := range keep {
		if k {
			rows = append(rows, i)
		}
	}
	return f.Take(rows)
}

// DropNA removes every row with a missing time or a missing cell in any channel.
func (f *Frame) DropNA() *Frame {
	keep := make([]bool, f.Len())
	for i := range keep {
		keep[i] = !math.IsNaN(f.Time[i])
		for _, c := range f.Columns {
			if !keep[i] {
				break
			}
			keep[i] = !c.missing(i)
		}
	}
	return f.Filter(keep)
}

// SortByTime returns the frame with rows stably ordered by time.
func (f *Frame) SortByTime() *Frame {
	rows := make([]int, f.Len())
	for i := range rows {
		rows[i] = i
	}
	sort.SliceStable(rows, func(a, b int) bool { return f.Time[rows[a]] < f.Time[rows[b]] })
	return f.Take(rows)
}

// Valid reports whether every channel is as long as the time index.
func (f *Frame) Valid() bool {
	for _, c := range f.Columns {
		if c.len() != len(f.Time) {
			return false
		}
	}
	return true
}

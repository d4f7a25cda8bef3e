// Package frame provides a small column-oriented table of float64 values.
//
// Row order is significant: it is treated as temporal order by the feature
// builder, so no operation in this package reorders rows.
package frame

import (
	"errors"
	"fmt"
	"math"
)

// ErrLengthMismatch is returned when a column does not match the frame length.
var ErrLengthMismatch = errors.New("column length does not match frame length")

// Frame is an ordered set of named float64 columns of equal length.
type Frame struct {
	names []string
	index map[string]int
	cols  [][]float64
	rows  int
}

// New builds a frame from column names and row-major data.
func New(names []string, rows [][]float64) (*Frame, error) {
	f := &Frame{
		names: make([]string, 0, len(names)),
		index: make(map[string]int, len(names)),
		cols:  make([][]float64, len(names)),
		rows:  len(rows),
	}

	for i, name := range names {
		if _, dup := f.index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		f.index[name] = i
		f.names = append(f.names, name)
		f.cols[i] = make([]float64, len(rows))
	}

	for r, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", r, len(row), len(names))
		}
		for c, v := range row {
			f.cols[c][r] = v
		}
	}

	return f, nil
}

// Empty returns a frame with no columns and no rows.
func Empty() *Frame {
	return &Frame{index: map[string]int{}}
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.rows }

// Width returns the number of columns.
func (f *Frame) Width() int { return len(f.names) }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Has reports whether the named column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]float64, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, f.rows)
	copy(out, f.cols[i])
	return out, true
}

// Set assigns a column. An existing column keeps its position; a new column
// is appended. Setting the first column of an empty frame fixes its length.
func (f *Frame) Set(name string, values []float64) error {
	if len(f.names) == 0 {
		f.rows = len(values)
	} else if len(values) != f.rows {
		return fmt.Errorf("%w: %q has %d values, frame has %d rows", ErrLengthMismatch, name, len(values), f.rows)
	}

	col := make([]float64, len(values))
	copy(col, values)

	if i, ok := f.index[name]; ok {
		f.cols[i] = col
		return nil
	}
	f.index[name] = len(f.names)
	f.names = append(f.names, name)
	f.cols = append(f.cols, col)
	return nil
}

// Fill sets every element of the named column to v, creating it if needed.
func (f *Frame) Fill(name string, v float64) error {
	values := make([]float64, f.rows)
	for i := range values {
		values[i] = v
	}
	return f.Set(name, values)
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		names: make([]string, len(f.names)),
		index: make(map[string]int, len(f.names)),
		cols:  make([][]float64, len(f.cols)),
		rows:  f.rows,
	}
	copy(out.names, f.names)
	for k, v := range f.index {
		out.index[k] = v
	}
	for i, c := range f.cols {
		out.cols[i] = make([]float64, len(c))
		copy(out.cols[i], c)
	}
	return out
}

// Drop returns a copy without the named columns. Unknown names are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}

	out := Empty()
	out.rows = f.rows
	for i, name := range f.names {
		if skip[name] {
			continue
		}
		col := make([]float64, f.rows)
		copy(col, f.cols[i])
		out.index[name] = len(out.names)
		out.names = append(out.names, name)
		out.cols = append(out.cols, col)
	}
	return out
}

// Head returns a copy of the first n rows.
func (f *Frame) Head(n int) *Frame {
	if n > f.rows {
		n = f.rows
	}
	if n < 0 {
		n = 0
	}

	out := f.Clone()
	out.rows = n
	for i := range out.cols {
		out.cols[i] = out.cols[i][:n]
	}
	return out
}

// Row returns a copy of row i in column order.
func (f *Frame) Row(i int) []float64 {
	row := make([]float64, len(f.cols))
	for c := range f.cols {
		row[c] = f.cols[c][i]
	}
	return row
}

// Matrix returns the frame as row-major data in column order.
func (f *Frame) Matrix() [][]float64 {
	out := make([][]float64, f.rows)
	for r := 0; r < f.rows; r++ {
		out[r] = f.Row(r)
	}
	return out
}

// FillNaN replaces every NaN in the frame with v.
func (f *Frame) FillNaN(v float64) {
	for _, col := range f.cols {
		for i, x := range col {
			if math.IsNaN(x) {
				col[i] = v
			}
		}
	}
}

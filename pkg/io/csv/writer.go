package csv

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/kshitij1706/fraud-anomaly-detection/pkg/frame"
	gio "github.com/kshitij1706/fraud-anomaly-detection/pkg/io"
)

var _ gio.Writer = (*Writer)(nil)

// Writer writes a table as CSV with a header row.
type Writer struct {
	closer io.Closer
	writer *csv.Writer
}

// Create creates (or truncates) a CSV file for writing.
func Create(filename string) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	w := NewWriter(file)
	w.closer = file
	return w, nil
}

// NewWriter creates a writer over dst.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{writer: csv.NewWriter(dst)}
}

// Write outputs the header followed by every row.
func (w *Writer) Write(f *frame.Frame) error {
	if err := w.writer.Write(f.Columns()); err != nil {
		return err
	}

	record := make([]string, f.Width())
	for r := 0; r < f.Len(); r++ {
		for c, v := range f.Row(r) {
			record[c] = FormatValue(v)
		}
		if err := w.writer.Write(record); err != nil {
			return err
		}
	}

	w.writer.Flush()
	return w.writer.Error()
}

// Close flushes and releases resources.
func (w *Writer) Close() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		if w.closer != nil {
			w.closer.Close()
		}
		return err
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// FormatValue renders a value with the shortest exact representation.
// NaN renders as an empty cell.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Package csv provides CSV reading and writing for transaction tables.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/kshitij1706/fraud-anomaly-detection/pkg/frame"
	gio "github.com/kshitij1706/fraud-anomaly-detection/pkg/io"
)

var _ gio.Reader = (*Reader)(nil)

// ErrNoHeader is returned when a headerless source has no column names.
var ErrNoHeader = errors.New("csv has no header and no column names were given")

// Reader reads a transaction table from CSV.
type Reader struct {
	closer        io.Closer
	reader        *csv.Reader
	hasHeader     bool
	headers       []string
	skipMalformed bool
	skipped       int
}

// Option configures a CSV reader.
type Option func(*Reader)

// WithHeader indicates the CSV has a header row.
func WithHeader(has bool) Option {
	return func(r *Reader) {
		r.hasHeader = has
	}
}

// WithColumnNames names the columns of a headerless CSV.
func WithColumnNames(names ...string) Option {
	return func(r *Reader) {
		r.headers = names
	}
}

// WithSkipMalformed drops rows that fail to parse instead of failing the read.
func WithSkipMalformed(skip bool) Option {
	return func(r *Reader) {
		r.skipMalformed = skip
	}
}

// Open creates a reader for a CSV file.
func Open(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	r, err := NewReader(file, opts...)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file
	return r, nil
}

// NewReader creates a reader over src, consuming the header row if present.
func NewReader(src io.Reader, opts ...Option) (*Reader, error) {
	r := &Reader{
		reader:    csv.NewReader(src),
		hasHeader: true,
	}
	r.reader.TrimLeadingSpace = true

	for _, opt := range opts {
		opt(r)
	}

	// Read header if present
	if r.hasHeader {
		headers, err := r.reader.Read()
		if err != nil {
			if err == io.EOF {
				return nil, errors.New("csv is empty")
			}
			return nil, err
		}
		for i, h := range headers {
			headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		}
		r.headers = headers
	}
	if len(r.headers) == 0 {
		return nil, ErrNoHeader
	}
	r.reader.FieldsPerRecord = len(r.headers)

	return r, nil
}

// Headers returns the column headers.
func (r *Reader) Headers() []string {
	return r.headers
}

// Skipped returns the number of malformed rows dropped by Read.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Read returns all rows as a frame. Empty cells become NaN.
func (r *Reader) Read() (*frame.Frame, error) {
	var data [][]float64

	line := 1
	if !r.hasHeader {
		line = 0
	}
	for {
		record, err := r.reader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if r.skipMalformed && errors.As(err, &perr) {
				r.skipped++
				continue
			}
			return nil, err
		}

		row, err := parseRow(record, r.headers)
		if err != nil {
			if r.skipMalformed {
				r.skipped++
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		data = append(data, row)
	}

	return frame.New(r.headers, data)
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// parseRow converts a record to floats. Blank cells and NaN literals are NaN.
func parseRow(record, headers []string) ([]float64, error) {
	if len(record) == 0 {
		return nil, errors.New("empty row")
	}

	row := make([]float64, len(record))
	for i, val := range record {
		val = strings.TrimSpace(val)
		if val == "" {
			row[i] = math.NaN()
			continue
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("column %q: invalid number %q", headers[i], val)
		}
		row[i] = f
	}
	return row, nil
}

// Package features builds the engineered feature table used by the
// transaction anomaly model.
//
// Rolling statistics are computed over row positions, not timestamps, so the
// input must already be in temporal order.
package features

import (
	"errors"
	"fmt"
	"math"

	"github.com/kshitij1706/fraud-anomaly-detection/pkg/frame"
)

// Column names read from and written to the feature table.
const (
	ColTime         = "Time"
	ColAmount       = "Amount"
	ColAmountScaled = "Amount_scaled"
	ColTxCount      = "transaction_count"
	ColTxPerWindow  = "tx_per_min"
	ColRollingMean  = "rolling_mean_amount"
	ColRollingStd   = "rolling_std_amount"
	ColHour         = "hour"
)

// DefaultWindow is the trailing window size, in rows, of the rolling features.
const DefaultWindow = 60

const (
	secondsPerHour = 3600
	hoursPerDay    = 24
)

// Derived lists the columns Build appends, in order.
var Derived = []string{
	ColAmountScaled,
	ColTxCount,
	ColTxPerWindow,
	ColRollingMean,
	ColRollingStd,
	ColHour,
}

// ErrMissingColumn is matched by errors.Is for any MissingColumnError.
var ErrMissingColumn = errors.New("missing required column")

// MissingColumnError reports a required input column that is absent.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column %q", e.Column)
}

func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

// Builder computes the feature table.
type Builder struct {
	window int
}

// Option configures a Builder.
type Option func(*Builder)

// WithWindow sets the rolling window size in rows.
func WithWindow(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.window = n
		}
	}
}

// NewBuilder creates a Builder with the given options.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{window: DefaultWindow}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Window returns the rolling window size.
func (b *Builder) Window() int { return b.window }

var defaultBuilder = NewBuilder()

// Build runs the default Builder. See Builder.Build.
func Build(in *frame.Frame, scaler *Scaler) ([][]float64, *Scaler, *frame.Frame, error) {
	return defaultBuilder.Build(in, scaler)
}

// Build returns the feature matrix, the scaler used and the feature table.
// When scaler is nil a new one is fitted on the Amount column. The input
// frame is never modified.
func (b *Builder) Build(in *frame.Frame, scaler *Scaler) ([][]float64, *Scaler, *frame.Frame, error) {
	for _, col := range []string{ColTime, ColAmount} {
		if !in.Has(col) {
			return nil, nil, nil, &MissingColumnError{Column: col}
		}
	}

	out := in.Clone()
	amount, _ := out.Column(ColAmount)
	times, _ := out.Column(ColTime)

	if scaler == nil {
		scaler = FitScaler(amount)
	}

	if err := out.Set(ColAmountScaled, scaler.Transform(amount)); err != nil {
		return nil, nil, nil, err
	}
	if err := out.Fill(ColTxCount, 1); err != nil {
		return nil, nil, nil, err
	}
	counts, _ := out.Column(ColTxCount)

	hours := make([]float64, len(times))
	for i, t := range times {
		hours[i] = hourOfDay(t)
	}

	mean, std := rollingMeanStd(amount, b.window)

	columns := []struct {
		name   string
		values []float64
	}{
		{ColTxPerWindow, rollingSum(counts, b.window)},
		{ColRollingMean, mean},
		{ColRollingStd, std},
		{ColHour, hours},
	}
	for _, c := range columns {
		if err := out.Set(c.name, c.values); err != nil {
			return nil, nil, nil, err
		}
	}

	out.FillNaN(0)

	return out.Matrix(), scaler, out, nil
}

// Width returns the number of feature columns Build produces for the given
// input columns.
func Width(inputColumns []string) int {
	seen := make(map[string]bool, len(inputColumns))
	for _, c := range inputColumns {
		seen[c] = true
	}
	n := len(seen)
	for _, c := range Derived {
		if !seen[c] {
			n++
		}
	}
	return n
}

// hourOfDay buckets a time offset in seconds into 0..23.
func hourOfDay(t float64) float64 {
	h := math.Mod(math.Floor(t/secondsPerHour), hoursPerDay)
	if h < 0 {
		h += hoursPerDay
	}
	return h
}

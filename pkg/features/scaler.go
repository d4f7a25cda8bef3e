package features

import (
	"errors"
	"fmt"
	"math"
)

// Scaler standardizes values with a fitted mean and standard deviation.
// Std is the population standard deviation; a zero Std scales by one.
type Scaler struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// FitScaler fits a Scaler on values, ignoring NaN entries.
func FitScaler(values []float64) *Scaler {
	var sum float64
	var n int
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return &Scaler{}
	}

	mean := sum / float64(n)
	var ss float64
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		d := v - mean
		ss += d * d
	}

	return &Scaler{Mean: mean, Std: math.Sqrt(ss / float64(n))}
}

// Transform returns (v - Mean) / Std for each value. NaN stays NaN.
func (s *Scaler) Transform(values []float64) []float64 {
	scale := s.Std
	if scale == 0 {
		scale = 1
	}

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - s.Mean) / scale
	}
	return out
}

// Validate checks that the scaler parameters are usable.
func (s *Scaler) Validate() error {
	if s == nil {
		return errors.New("scaler is nil")
	}
	if math.IsNaN(s.Mean) || math.IsInf(s.Mean, 0) {
		return fmt.Errorf("invalid scaler mean %v", s.Mean)
	}
	if math.IsNaN(s.Std) || math.IsInf(s.Std, 0) || s.Std < 0 {
		return fmt.Errorf("invalid scaler std %v", s.Std)
	}
	return nil
}

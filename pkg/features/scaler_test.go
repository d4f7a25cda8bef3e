package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFitScaler(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		wantMean float64
		wantStd  float64
	}{
		{"population std", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 5, 2},
		{"ignores NaN", []float64{1, math.NaN(), 3}, 2, 1},
		{"constant", []float64{3, 3, 3}, 3, 0},
		{"empty", nil, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FitScaler(tt.values)
			assert.InDelta(t, tt.wantMean, s.Mean, 1e-12)
			assert.InDelta(t, tt.wantStd, s.Std, 1e-12)
		})
	}
}

func TestScalerTransform(t *testing.T) {
	s := &Scaler{Mean: 50, Std: 25}
	assert.Equal(t, []float64{2, 0, -2}, s.Transform([]float64{100, 50, 0}))

	zero := &Scaler{Mean: 3, Std: 0}
	assert.Equal(t, []float64{0, 1}, zero.Transform([]float64{3, 4}))

	out := s.Transform([]float64{math.NaN()})
	assert.True(t, math.IsNaN(out[0]))
}

func TestScalerValidate(t *testing.T) {
	assert.NoError(t, (&Scaler{Mean: 1, Std: 2}).Validate())
	assert.NoError(t, (&Scaler{}).Validate())
	assert.Error(t, (&Scaler{Mean: math.NaN(), Std: 1}).Validate())
	assert.Error(t, (&Scaler{Mean: 0, Std: -1}).Validate())
	assert.Error(t, (&Scaler{Mean: 0, Std: math.Inf(1)}).Validate())

	var nilScaler *Scaler
	assert.Error(t, nilScaler.Validate())
}

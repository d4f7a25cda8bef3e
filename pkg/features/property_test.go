package features

import (
	"math"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/kshitij1706/fraud-anomaly-detection/pkg/frame"
)

func amountFrame(amounts []float64) *frame.Frame {
	rows := make([][]float64, len(amounts))
	for i, a := range amounts {
		rows[i] = []float64{float64(i * 37), a}
	}
	f, _ := frame.New([]string{ColTime, ColAmount}, rows)
	return f
}

func amountsOfLength(min, max int) gopter.Gen {
	return gen.IntRange(min, max).FlatMap(func(v interface{}) gopter.Gen {
		return gen.SliceOfN(v.(int), gen.Float64Range(0, 5000))
	}, reflect.TypeOf([]float64{}))
}

// TestProperty_FeatureBuilder checks the row-count, warm-up and window
// statistics guarantees of Build.
func TestProperty_FeatureBuilder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("output row count equals input row count", prop.ForAll(
		func(amounts []float64) bool {
			X, _, table, err := Build(amountFrame(amounts), nil)
			return err == nil && len(X) == len(amounts) && table.Len() == len(amounts)
		},
		amountsOfLength(1, 120),
	))

	properties.Property("fewer than 60 rows leaves every rolling feature at zero", prop.ForAll(
		func(amounts []float64) bool {
			_, _, table, err := Build(amountFrame(amounts), nil)
			if err != nil {
				return false
			}
			for _, name := range []string{ColTxPerWindow, ColRollingMean, ColRollingStd} {
				col, _ := table.Column(name)
				for _, v := range col {
					if v != 0 {
						return false
					}
				}
			}
			return true
		},
		amountsOfLength(1, DefaultWindow-1),
	))

	properties.Property("complete windows match closed-form statistics", prop.ForAll(
		func(amounts []float64) bool {
			_, _, table, err := Build(amountFrame(amounts), nil)
			if err != nil {
				return false
			}
			perWindow, _ := table.Column(ColTxPerWindow)
			mean, _ := table.Column(ColRollingMean)
			std, _ := table.Column(ColRollingStd)

			for k := DefaultWindow - 1; k < len(amounts); k++ {
				w := amounts[k-DefaultWindow+1 : k+1]
				var sum float64
				for _, v := range w {
					sum += v
				}
				m := sum / float64(len(w))
				var ss float64
				for _, v := range w {
					ss += (v - m) * (v - m)
				}
				s := math.Sqrt(ss / float64(len(w)-1))

				if perWindow[k] != DefaultWindow {
					return false
				}
				if math.Abs(mean[k]-m) > 1e-6 || math.Abs(std[k]-s) > 1e-6 {
					return false
				}
			}
			return true
		},
		amountsOfLength(DefaultWindow, 150),
	))

	properties.Property("reapplying a fitted scaler reproduces Amount_scaled", prop.ForAll(
		func(amounts []float64) bool {
			in := amountFrame(amounts)
			_, fitted, fresh, err := Build(in, nil)
			if err != nil {
				return false
			}
			_, _, reused, err := Build(in, fitted)
			if err != nil {
				return false
			}
			a, _ := fresh.Column(ColAmountScaled)
			b, _ := reused.Column(ColAmountScaled)
			return reflect.DeepEqual(a, b)
		},
		amountsOfLength(1, 100),
	))

	properties.Property("hour bucket is floor(time/3600) mod 24", prop.ForAll(
		func(seconds int64) bool {
			return hourOfDay(float64(seconds)) == float64((seconds/3600)%24)
		},
		gen.Int64Range(0, 10_000_000),
	))

	properties.TestingRun(t)
}

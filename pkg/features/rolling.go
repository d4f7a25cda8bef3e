package features

import "math"

// rollingSum returns the trailing window sum of values. The first window-1
// positions and any window containing NaN are NaN.
func rollingSum(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		w, ok := trailing(values, i, window)
		if !ok {
			out[i] = math.NaN()
			continue
		}
		var sum float64
		for _, v := range w {
			sum += v
		}
		out[i] = sum
	}
	return out
}

// rollingMeanStd returns the trailing window mean and sample standard
// deviation (n-1 denominator). A window of one row has an undefined std.
func rollingMeanStd(values []float64, window int) (mean, std []float64) {
	mean = make([]float64, len(values))
	std = make([]float64, len(values))

	for i := range values {
		w, ok := trailing(values, i, window)
		if !ok {
			mean[i], std[i] = math.NaN(), math.NaN()
			continue
		}

		var sum float64
		for _, v := range w {
			sum += v
		}
		m := sum / float64(len(w))
		mean[i] = m

		if len(w) < 2 {
			std[i] = math.NaN()
			continue
		}
		var ss float64
		for _, v := range w {
			d := v - m
			ss += d * d
		}
		std[i] = math.Sqrt(ss / float64(len(w)-1))
	}
	return mean, std
}

// trailing returns values[i-window+1 : i+1] when the window is complete and
// free of NaN.
func trailing(values []float64, i, window int) ([]float64, bool) {
	start := i - window + 1
	if start < 0 {
		return nil, false
	}
	w := values[start : i+1]
	for _, v := range w {
		if math.IsNaN(v) {
			return nil, false
		}
	}
	return w, true
}

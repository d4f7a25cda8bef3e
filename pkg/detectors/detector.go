// Package detectors provides unsupervised anomaly detection algorithms.
package detectors

import (
	"errors"
	"fmt"
)

// ErrNotTrained is returned when scoring with a model that was never fitted or loaded.
var ErrNotTrained = errors.New("model not trained")

// Label is the classification of a single sample.
type Label int

const (
	// Outlier marks an anomalous sample.
	Outlier Label = -1
	// Inlier marks a normal sample.
	Inlier Label = 1
)

// Detector is the common interface for all anomaly detection algorithms.
type Detector interface {
	// Fit trains the detector on historical data.
	// data is a 2D slice where each row is a sample and each column is a feature.
	Fit(data [][]float64) error

	// ScoreSamples returns the raw anomaly score of each sample.
	// Lower values are more abnormal.
	ScoreSamples(data [][]float64) ([]float64, error)

	// DecisionFunction returns ScoreSamples shifted by the fitted offset.
	// Negative values are outliers, positive values inliers.
	DecisionFunction(data [][]float64) ([]float64, error)

	// Predict classifies each sample as Inlier or Outlier.
	Predict(data [][]float64) ([]Label, error)

	// NFeatures returns the number of features seen during Fit.
	NFeatures() int

	// Save serializes the trained model to bytes.
	Save() ([]byte, error)

	// Load deserializes a trained model from bytes.
	Load(data []byte) error
}

// Config holds common configuration for detectors.
type Config struct {
	// Trees is the number of estimators in an ensemble.
	Trees int `json:"trees" yaml:"trees"`
	// SampleSize is the subsample drawn for each estimator.
	SampleSize int `json:"sample_size" yaml:"sample_size"`
	// Contamination is the expected proportion of anomalies in training data.
	// Zero selects the fixed offset used by the "auto" setting.
	Contamination float64 `json:"contamination" yaml:"contamination"`
	// RandomSeed for reproducibility.
	RandomSeed int64 `json:"random_seed" yaml:"random_seed"`
}

// DefaultConfig returns sensible defaults for detector configuration.
func DefaultConfig() Config {
	return Config{
		Trees:         100,
		SampleSize:    256,
		Contamination: 0,
		RandomSeed:    42,
	}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if c.Trees <= 0 {
		return fmt.Errorf("trees must be positive, got %d", c.Trees)
	}
	if c.SampleSize <= 0 {
		return fmt.Errorf("sample_size must be positive, got %d", c.SampleSize)
	}
	if c.Contamination < 0 || c.Contamination > 0.5 {
		return fmt.Errorf("contamination must be in [0, 0.5], got %v", c.Contamination)
	}
	return nil
}

// FeatureMismatchError reports input whose width differs from the model's.
type FeatureMismatchError struct {
	Expected int
	Actual   int
}

func (e *FeatureMismatchError) Error() string {
	return fmt.Sprintf("feature mismatch: model expects %d features, input has %d", e.Expected, e.Actual)
}

// CheckWidth returns a FeatureMismatchError when any row of data does not
// have exactly expected columns.
func CheckWidth(expected int, data [][]float64) error {
	for _, row := range data {
		if len(row) != expected {
			return &FeatureMismatchError{Expected: expected, Actual: len(row)}
		}
	}
	return nil
}

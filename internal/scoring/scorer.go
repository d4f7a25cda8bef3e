// Package scoring runs transactions through the feature builder and the
// anomaly model. It is shared by the prediction endpoint, the dashboard and
// the batch command, and holds no mutable state.
package scoring

import (
	"errors"

	"github.com/kshitij1706/fraud-anomaly-detection/internal/artifacts"
	faults "github.com/kshitij1706/fraud-anomaly-detection/internal/errors"
	"github.com/kshitij1706/fraud-anomaly-detection/pkg/detectors"
	"github.com/kshitij1706/fraud-anomaly-detection/pkg/features"
	"github.com/kshitij1706/fraud-anomaly-detection/pkg/frame"
	txio "github.com/kshitij1706/fraud-anomaly-detection/pkg/io"
)

// Result columns appended to a scored table.
const (
	ColScore = "anomaly_score"
	ColFlag  = "anomaly_flag"
)

// ColLabel is the ground-truth label column of the public dataset.
const ColLabel = "Class"

// Stripped lists the columns removed from uploaded tables before scoring,
// so previously scored or labelled files can be uploaded again.
var Stripped = []string{ColLabel, ColScore, ColFlag}

// Batch is the outcome of scoring a table.
type Batch struct {
	// Raw is the input after Stripped columns were removed.
	Raw *frame.Frame
	// Table is the feature table with ColScore and ColFlag appended.
	Table *frame.Frame
	// NFeatures is the number of features passed to the model.
	NFeatures int
	Flagged   int
	Normal    int
}

// Scorer scores transactions against one model and scaler.
type Scorer struct {
	model   detectors.Detector
	scaler  *features.Scaler
	builder *features.Builder
}

// New creates a Scorer. The model and scaler must not be modified afterwards.
func New(model detectors.Detector, scaler *features.Scaler) *Scorer {
	return &Scorer{
		model:   model,
		scaler:  scaler,
		builder: features.NewBuilder(),
	}
}

// NewFromBundle creates a Scorer from loaded artifacts.
func NewFromBundle(b *artifacts.Bundle) *Scorer {
	return New(b.Model, b.Scaler)
}

// NFeatures returns the input width the model expects.
func (s *Scorer) NFeatures() int {
	return s.model.NFeatures()
}

// Strip returns a copy of in without the Stripped columns.
func Strip(in *frame.Frame) *frame.Frame {
	return in.Drop(Stripped...)
}

// ScoreTransaction scores a single transaction.
func (s *Scorer) ScoreTransaction(tx Transaction) (txio.Result, error) {
	matrix, _, _, err := s.build(tx.ToFrame())
	if err != nil {
		return txio.Result{}, err
	}

	scores, labels, err := s.score(matrix)
	if err != nil {
		return txio.Result{}, err
	}

	return txio.Result{Score: scores[0], Flag: flag(labels[0])}, nil
}

// ScoreFrame strips result and label columns from in, then scores every row
// in one call. The whole batch is rejected on any fault.
func (s *Scorer) ScoreFrame(in *frame.Frame) (*Batch, error) {
	raw := Strip(in)

	matrix, _, table, err := s.build(raw)
	if err != nil {
		return nil, err
	}

	scores, labels, err := s.score(matrix)
	if err != nil {
		return nil, err
	}

	b := &Batch{Raw: raw, NFeatures: table.Width()}
	flags := make([]float64, len(labels))
	for i, l := range labels {
		flags[i] = float64(flag(l))
		if l == detectors.Outlier {
			b.Flagged++
		}
	}
	b.Normal = len(labels) - b.Flagged

	if err := table.Set(ColScore, scores); err != nil {
		return nil, faults.NewInternal("failed to append scores", err)
	}
	if err := table.Set(ColFlag, flags); err != nil {
		return nil, faults.NewInternal("failed to append flags", err)
	}
	b.Table = table

	return b, nil
}

// build runs the feature builder and checks the width against the model.
func (s *Scorer) build(in *frame.Frame) ([][]float64, *features.Scaler, *frame.Frame, error) {
	matrix, scaler, table, err := s.builder.Build(in, s.scaler)
	if err != nil {
		var missing *features.MissingColumnError
		if errors.As(err, &missing) {
			return nil, nil, nil, faults.NewMissingColumn(missing.Column, err)
		}
		return nil, nil, nil, faults.NewInternal("failed to build features", err)
	}

	if expected := s.model.NFeatures(); table.Width() != expected {
		return nil, nil, nil, faults.NewFeatureMismatch(expected, table.Width())
	}

	return matrix, scaler, table, nil
}

func (s *Scorer) score(matrix [][]float64) ([]float64, []detectors.Label, error) {
	scores, err := s.model.DecisionFunction(matrix)
	if err != nil {
		return nil, nil, modelFault(err)
	}
	labels, err := s.model.Predict(matrix)
	if err != nil {
		return nil, nil, modelFault(err)
	}
	return scores, labels, nil
}

func modelFault(err error) error {
	var mismatch *detectors.FeatureMismatchError
	if errors.As(err, &mismatch) {
		return faults.NewFeatureMismatch(mismatch.Expected, mismatch.Actual)
	}
	if errors.Is(err, detectors.ErrNotTrained) {
		return faults.NewInvalidArtifact("model", err)
	}
	return faults.NewInternal("model scoring failed", err)
}

func flag(l detectors.Label) int {
	if l == detectors.Outlier {
		return 1
	}
	return 0
}

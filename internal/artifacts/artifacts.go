// Package artifacts loads and saves the model and scaler the scoring
// front-ends depend on. Loading is a one-time startup step; the resulting
// Bundle is read-only and shared by every request.
package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kshitij1706/fraud-anomaly-detection/internal/config"
	faults "github.com/kshitij1706/fraud-anomaly-detection/internal/errors"
	"github.com/kshitij1706/fraud-anomaly-detection/pkg/detectors"
	"github.com/kshitij1706/fraud-anomaly-detection/pkg/detectors/iforest"
	"github.com/kshitij1706/fraud-anomaly-detection/pkg/features"
)

// Bundle is the immutable pair of artifacts used for scoring.
type Bundle struct {
	Model  detectors.Detector
	Scaler *features.Scaler

	// ModelLocation and ScalerLocation record where the artifacts came from.
	ModelLocation  string
	ScalerLocation string
}

// Load reads both artifacts from store. Either artifact being absent is a
// MISSING_ARTIFACT fault; undecodable content is an INVALID_ARTIFACT fault.
func Load(ctx context.Context, store Store, modelName, scalerName string) (*Bundle, error) {
	modelData, err := store.Get(ctx, modelName)
	if err != nil {
		return nil, err
	}
	scalerData, err := store.Get(ctx, scalerName)
	if err != nil {
		return nil, err
	}

	model := iforest.New()
	if err := model.Load(modelData); err != nil {
		return nil, faults.NewInvalidArtifact(store.Location(modelName), err)
	}

	var scaler features.Scaler
	if err := json.Unmarshal(scalerData, &scaler); err != nil {
		return nil, faults.NewInvalidArtifact(store.Location(scalerName), err)
	}
	if err := scaler.Validate(); err != nil {
		return nil, faults.NewInvalidArtifact(store.Location(scalerName), err)
	}

	return &Bundle{
		Model:          model,
		Scaler:         &scaler,
		ModelLocation:  store.Location(modelName),
		ScalerLocation: store.Location(scalerName),
	}, nil
}

// LoadFromConfig builds the configured store and loads the bundle from it.
func LoadFromConfig(ctx context.Context, cfg config.ArtifactsConfig) (*Bundle, error) {
	store, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return Load(ctx, store, cfg.ModelFile, cfg.ScalerFile)
}

// Save writes the model and scaler into dir, creating it if needed.
func Save(dir, modelName, scalerName string, model detectors.Detector, scaler *features.Scaler) error {
	if err := scaler.Validate(); err != nil {
		return err
	}

	modelData, err := model.Save()
	if err != nil {
		return fmt.Errorf("failed to serialize model: %w", err)
	}
	scalerData, err := json.MarshalIndent(scaler, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize scaler: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := writeFile(filepath.Join(dir, modelName), modelData); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, scalerName), scalerData)
}

// writeFile writes through a temp file so a crash never leaves a partial artifact.
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

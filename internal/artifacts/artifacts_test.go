package artifacts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kshitij1706/fraud-anomaly-detection/internal/config"
	faults "github.com/kshitij1706/fraud-anomaly-detection/internal/errors"
	"github.com/kshitij1706/fraud-anomaly-detection/pkg/detectors/iforest"
	"github.com/kshitij1706/fraud-anomaly-detection/pkg/features"
)

const (
	modelName  = "isolation_forest.gob"
	scalerName = "scaler.json"
)

func trainedForest(t *testing.T) *iforest.IsolationForest {
	t.Helper()
	data := make([][]float64, 64)
	for i := range data {
		data[i] = []float64{float64(i), float64(i % 7), float64(i * i % 11)}
	}
	f := iforest.New(iforest.WithTrees(5), iforest.WithSampleSize(32), iforest.WithSeed(1))
	require.NoError(t, f.Fit(data))
	return f
}

func TestSaveAndLoadLocal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	model := trainedForest(t)
	scaler := &features.Scaler{Mean: 88.35, Std: 250.12}

	require.NoError(t, Save(dir, modelName, scalerName, model, scaler))

	bundle, err := LoadFromConfig(context.Background(), config.ArtifactsConfig{
		Source:     config.SourceLocal,
		Dir:        dir,
		ModelFile:  modelName,
		ScalerFile: scalerName,
	})
	require.NoError(t, err)

	assert.Equal(t, scaler, bundle.Scaler)
	assert.Equal(t, 3, bundle.Model.NFeatures())
	assert.Equal(t, filepath.Join(dir, modelName), bundle.ModelLocation)

	sample := [][]float64{{3, 3, 9}}
	want, err := model.DecisionFunction(sample)
	require.NoError(t, err)
	got, err := bundle.Model.DecisionFunction(sample)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadMissingArtifacts(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)

	_, err := Load(context.Background(), store, modelName, scalerName)
	require.ErrorIs(t, err, faults.ErrMissingArtifact)
	assert.Contains(t, err.Error(), modelName)

	data, err := trainedForest(t).Save()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, modelName), data, 0o644))

	_, err = Load(context.Background(), store, modelName, scalerName)
	require.ErrorIs(t, err, faults.ErrMissingArtifact)
	assert.Contains(t, err.Error(), scalerName)
}

func TestLoadInvalidArtifacts(t *testing.T) {
	tests := []struct {
		name   string
		model  []byte
		scaler []byte
	}{
		{"corrupt model", []byte("junk"), []byte(`{"mean": 1, "std": 2}`)},
		{"corrupt scaler", nil, []byte(`{"mean":`)},
		{"negative std", nil, []byte(`{"mean": 1, "std": -2}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			model := tt.model
			if model == nil {
				var err error
				model, err = trainedForest(t).Save()
				require.NoError(t, err)
			}
			require.NoError(t, os.WriteFile(filepath.Join(dir, modelName), model, 0o644))
			require.NoError(t, os.WriteFile(filepath.Join(dir, scalerName), tt.scaler, 0o644))

			_, err := Load(context.Background(), NewLocalStore(dir), modelName, scalerName)
			assert.ErrorIs(t, err, faults.ErrInvalidArtifact)
		})
	}
}

func TestSaveRejectsUntrainedModel(t *testing.T) {
	err := Save(t.TempDir(), modelName, scalerName, iforest.New(), &features.Scaler{Std: 1})
	assert.Error(t, err)
}

type fakeS3 struct {
	objects map[string][]byte
	err     error
	keys    []string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.keys = append(f.keys, aws.ToString(in.Bucket)+"/"+key)
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3Store(t *testing.T) {
	model, err := trainedForest(t).Save()
	require.NoError(t, err)

	client := &fakeS3{objects: map[string][]byte{
		"prod/" + modelName:  model,
		"prod/" + scalerName: []byte(`{"mean": 10, "std": 5}`),
	}}
	store := newS3StoreWithClient(client, "fraud-models", "prod")

	bundle, err := Load(context.Background(), store, modelName, scalerName)
	require.NoError(t, err)
	assert.Equal(t, &features.Scaler{Mean: 10, Std: 5}, bundle.Scaler)
	assert.Equal(t, "s3://fraud-models/prod/"+modelName, bundle.ModelLocation)
	assert.Equal(t, []string{"fraud-models/prod/" + modelName, "fraud-models/prod/" + scalerName}, client.keys)
}

func TestS3StoreErrors(t *testing.T) {
	store := newS3StoreWithClient(&fakeS3{}, "b", "")
	_, err := store.Get(context.Background(), modelName)
	assert.ErrorIs(t, err, faults.ErrMissingArtifact)

	boom := errors.New("connection reset")
	store = newS3StoreWithClient(&fakeS3{err: boom}, "b", "")
	_, err = store.Get(context.Background(), modelName)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, faults.ErrMissingArtifact)
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(context.Background(), config.ArtifactsConfig{Source: config.SourceLocal, Dir: "models"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("models", modelName), s.Location(modelName))

	_, err = NewStore(context.Background(), config.ArtifactsConfig{Source: "ftp"})
	assert.Error(t, err)
}

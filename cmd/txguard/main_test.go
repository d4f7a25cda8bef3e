package main

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kshitij1706/fraud-anomaly-detection/internal/scoring"
	csvio "github.com/kshitij1706/fraud-anomaly-detection/pkg/io/csv"
)

// writeTransactions writes n synthetic transactions with a Class column.
// Every 50th row is an obvious outlier labelled 1.
func writeTransactions(t *testing.T, path string, n int) {
	t.Helper()
	var b strings.Builder
	b.WriteString(strings.Join(scoring.FieldNames(), ","))
	b.WriteString(",Class\n")

	for i := 0; i < n; i++ {
		values := make([]string, 0, 31)
		values = append(values, fmt.Sprint(i*7))
		outlier := i%50 == 49
		for j := 1; j <= scoring.NumAttributes; j++ {
			v := math.Sin(float64(i*j)) * 0.5
			if outlier {
				v = 25
			}
			values = append(values, fmt.Sprint(v))
		}
		amount, class := 10+float64(i%13), "0"
		if outlier {
			amount, class = 9000, "1"
		}
		values = append(values, fmt.Sprint(amount), class)
		b.WriteString(strings.Join(values, ","))
		b.WriteByte('\n')
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", "", "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestTrainThenScore(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "transactions.csv")
	models := filepath.Join(dir, "models")
	output := filepath.Join(dir, "scored.csv")
	writeTransactions(t, data, 400)

	_, err := run(t, "train", "--input", data, "--out", models, "--trees", "50", "--sample-size", "128")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(models, "isolation_forest.gob"))
	assert.FileExists(t, filepath.Join(models, "scaler.json"))

	stdout, err := run(t, "score", "--models", models, "--input", data, "--output", output)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Number of features passed to model: 36")

	r, err := csvio.Open(output)
	require.NoError(t, err)
	defer r.Close()
	scored, err := r.Read()
	require.NoError(t, err)

	assert.Equal(t, 400, scored.Len())
	assert.False(t, scored.Has("Class"))
	flags, ok := scored.Column(scoring.ColFlag)
	require.True(t, ok)

	// The planted outliers are flagged.
	for i := 49; i < 400; i += 50 {
		assert.Equal(t, 1.0, flags[i], "row %d", i)
	}
}

func TestScoreWithoutArtifacts(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "transactions.csv")
	writeTransactions(t, data, 10)

	_, err := run(t, "score", "--models", filepath.Join(dir, "missing"), "--input", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "artifact not found")
}

func TestTrainRequiresInput(t *testing.T) {
	_, err := run(t, "train")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "txguard dev\n", out)
}

package frame

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	f, err := New([]string{"a", "b"}, [][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, 2, f.Width())
	assert.Equal(t, []string{"a", "b"}, f.Columns())
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, f.Matrix())

	_, err = New([]string{"a", "a"}, nil)
	assert.Error(t, err)

	_, err = New([]string{"a", "b"}, [][]float64{{1}})
	assert.Error(t, err)
}

func TestSet(t *testing.T) {
	f, err := New([]string{"a", "b"}, [][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)

	require.NoError(t, f.Set("c", []float64{5, 6}))
	assert.Equal(t, []string{"a", "b", "c"}, f.Columns())

	require.NoError(t, f.Set("a", []float64{9, 9}))
	assert.Equal(t, []string{"a", "b", "c"}, f.Columns(), "replacing keeps position")
	assert.Equal(t, []float64{9, 2, 5}, f.Row(0))

	err = f.Set("d", []float64{1})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	e := Empty()
	require.NoError(t, e.Set("x", []float64{1, 2, 3}))
	assert.Equal(t, 3, e.Len())

	require.NoError(t, e.Fill("one", 1))
	col, ok := e.Column("one")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 1, 1}, col)
}

func TestCloneIsIndependent(t *testing.T) {
	f, err := New([]string{"a"}, [][]float64{{1}})
	require.NoError(t, err)

	c := f.Clone()
	require.NoError(t, c.Set("a", []float64{7}))
	require.NoError(t, c.Set("b", []float64{8}))

	assert.Equal(t, []string{"a"}, f.Columns())
	col, _ := f.Column("a")
	assert.Equal(t, []float64{1}, col)
}

func TestColumnReturnsCopy(t *testing.T) {
	f, err := New([]string{"a"}, [][]float64{{1}})
	require.NoError(t, err)

	col, _ := f.Column("a")
	col[0] = 42
	again, _ := f.Column("a")
	assert.Equal(t, 1.0, again[0])

	_, ok := f.Column("missing")
	assert.False(t, ok)
}

func TestDropAndHead(t *testing.T) {
	f, err := New([]string{"a", "Class", "b"}, [][]float64{{1, 0, 2}, {3, 1, 4}, {5, 0, 6}})
	require.NoError(t, err)

	d := f.Drop("Class", "unknown")
	assert.Equal(t, []string{"a", "b"}, d.Columns())
	assert.Equal(t, 3, d.Len())
	assert.True(t, f.Has("Class"))

	h := f.Head(2)
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, [][]float64{{1, 0, 2}, {3, 1, 4}}, h.Matrix())
	assert.Equal(t, 3, f.Head(10).Len())
	assert.Equal(t, 0, f.Head(-1).Len())
}

func TestFillNaN(t *testing.T) {
	f, err := New([]string{"a", "b"}, [][]float64{{math.NaN(), 1}, {2, math.NaN()}})
	require.NoError(t, err)

	f.FillNaN(0)
	assert.Equal(t, [][]float64{{0, 1}, {2, 0}}, f.Matrix())
}

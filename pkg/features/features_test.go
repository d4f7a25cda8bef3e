package features

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kshitij1706/fraud-anomaly-detection/pkg/frame"
)

// transactionColumns mirrors the 30-field transaction record.
func transactionColumns() []string {
	cols := []string{ColTime}
	for i := 1; i <= 28; i++ {
		cols = append(cols, "V"+strconv.Itoa(i))
	}
	return append(cols, ColAmount)
}

// transactions builds n rows with Time = i*step and the given amounts.
func transactions(t *testing.T, amounts []float64, step float64) *frame.Frame {
	t.Helper()
	cols := transactionColumns()
	rows := make([][]float64, len(amounts))
	for i, a := range amounts {
		row := make([]float64, len(cols))
		row[0] = float64(i) * step
		row[len(cols)-1] = a
		rows[i] = row
	}
	f, err := frame.New(cols, rows)
	require.NoError(t, err)
	return f
}

func column(t *testing.T, f *frame.Frame, name string) []float64 {
	t.Helper()
	col, ok := f.Column(name)
	require.True(t, ok, "column %s", name)
	return col
}

func TestBuildSingleTransaction(t *testing.T) {
	in := transactions(t, []float64{100}, 0)

	X, scaler, table, err := Build(in, &Scaler{Mean: 50, Std: 25})
	require.NoError(t, err)

	require.Len(t, X, 1)
	assert.Len(t, X[0], 36)
	assert.Equal(t, &Scaler{Mean: 50, Std: 25}, scaler)

	assert.Equal(t, 2.0, column(t, table, ColAmountScaled)[0])
	assert.Equal(t, 1.0, column(t, table, ColTxCount)[0])
	assert.Equal(t, 0.0, column(t, table, ColTxPerWindow)[0])
	assert.Equal(t, 0.0, column(t, table, ColRollingMean)[0])
	assert.Equal(t, 0.0, column(t, table, ColRollingStd)[0])
	assert.Equal(t, 0.0, column(t, table, ColHour)[0])
}

func TestBuildColumnOrder(t *testing.T) {
	in := transactions(t, []float64{1, 2, 3}, 1)

	_, _, table, err := Build(in, nil)
	require.NoError(t, err)

	want := append(transactionColumns(), Derived...)
	assert.Equal(t, want, table.Columns())
	assert.Equal(t, len(want), Width(in.Columns()))
}

func TestBuildReplacesExistingDerivedColumn(t *testing.T) {
	in, err := frame.New([]string{ColTime, "hour", ColAmount}, [][]float64{{7200, 99, 10}})
	require.NoError(t, err)

	_, _, table, err := Build(in, nil)
	require.NoError(t, err)

	cols := table.Columns()
	assert.Equal(t, "hour", cols[1])
	assert.Equal(t, 2.0, column(t, table, ColHour)[0])
	assert.Equal(t, len(cols), Width(in.Columns()))
}

func TestBuildResetsTransactionCount(t *testing.T) {
	in, err := frame.New([]string{ColTime, ColAmount, ColTxCount}, [][]float64{{0, 1, 5}, {1, 2, 0}})
	require.NoError(t, err)

	_, _, table, err := Build(in, nil)
	require.NoError(t, err)

	assert.Equal(t, ColTxCount, table.Columns()[2])
	assert.Equal(t, []float64{1, 1}, column(t, table, ColTxCount))
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	in := transactions(t, []float64{1, 2, 3}, 1)
	before := in.Matrix()

	_, _, _, err := Build(in, nil)
	require.NoError(t, err)

	assert.Equal(t, before, in.Matrix())
	assert.Equal(t, transactionColumns(), in.Columns())
}

func TestBuildMissingColumns(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		missing string
	}{
		{"no amount", []string{ColTime, "V1"}, ColAmount},
		{"no time", []string{"V1", ColAmount}, ColTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := frame.New(tt.columns, [][]float64{{1, 2}})
			require.NoError(t, err)

			X, scaler, table, err := Build(in, nil)
			require.ErrorIs(t, err, ErrMissingColumn)
			var mc *MissingColumnError
			require.ErrorAs(t, err, &mc)
			assert.Equal(t, tt.missing, mc.Column)
			assert.Nil(t, X)
			assert.Nil(t, scaler)
			assert.Nil(t, table)
		})
	}
}

func TestBuildFitsScalerWhenNil(t *testing.T) {
	in := transactions(t, []float64{10, 20, 30, 40}, 1)

	_, scaler, table, err := Build(in, nil)
	require.NoError(t, err)

	assert.InDelta(t, 25, scaler.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(125), scaler.Std, 1e-12)

	scaled := column(t, table, ColAmountScaled)
	var sum float64
	for _, v := range scaled {
		sum += v
	}
	assert.InDelta(t, 0, sum, 1e-12)
}

func TestBuildRollingWindow(t *testing.T) {
	amounts := make([]float64, 70)
	for i := range amounts {
		amounts[i] = float64(i + 1)
	}
	in := transactions(t, amounts, 10)

	_, _, table, err := Build(in, nil)
	require.NoError(t, err)

	perWindow := column(t, table, ColTxPerWindow)
	mean := column(t, table, ColRollingMean)
	std := column(t, table, ColRollingStd)

	for k := 0; k < 59; k++ {
		assert.Equal(t, 0.0, perWindow[k])
		assert.Equal(t, 0.0, mean[k])
		assert.Equal(t, 0.0, std[k])
	}

	// window [k-59, k] holds the consecutive integers k-58 .. k+1
	for k := 59; k < 70; k++ {
		assert.Equal(t, 60.0, perWindow[k])
		assert.InDelta(t, float64(k)-28.5, mean[k], 1e-9)
		assert.InDelta(t, math.Sqrt(60*61/12.0), std[k], 1e-9)
	}
}

func TestBuildNaNAmountInsideWindow(t *testing.T) {
	amounts := make([]float64, 61)
	for i := range amounts {
		amounts[i] = 5
	}
	amounts[0] = math.NaN()
	in := transactions(t, amounts, 1)

	_, _, table, err := Build(in, nil)
	require.NoError(t, err)

	mean := column(t, table, ColRollingMean)
	assert.Equal(t, 0.0, mean[59], "window containing a missing amount")
	assert.Equal(t, 5.0, mean[60])
	assert.Equal(t, 0.0, column(t, table, ColAmount)[0])
}

func TestHourBucket(t *testing.T) {
	tests := []struct {
		time float64
		want float64
	}{
		{0, 0},
		{3599, 0},
		{3600, 1},
		{90000, 1},
		{86399, 23},
		{172800, 0},
		{-1, 23},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, hourOfDay(tt.time), "time %v", tt.time)
	}
}

func TestBuilderWindowOption(t *testing.T) {
	b := NewBuilder(WithWindow(2))
	assert.Equal(t, 2, b.Window())
	assert.Equal(t, DefaultWindow, NewBuilder(WithWindow(0)).Window())

	in := transactions(t, []float64{1, 3, 5}, 1)
	_, _, table, err := b.Build(in, nil)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 2, 2}, column(t, table, ColTxPerWindow))
	assert.Equal(t, []float64{0, 2, 4}, column(t, table, ColRollingMean))
	assert.InDeltaSlice(t, []float64{0, math.Sqrt2, math.Sqrt2}, column(t, table, ColRollingStd), 1e-12)
}

func TestBuildEmptyFrame(t *testing.T) {
	in, err := frame.New([]string{ColTime, ColAmount}, nil)
	require.NoError(t, err)

	X, scaler, table, err := Build(in, nil)
	require.NoError(t, err)
	assert.Empty(t, X)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, &Scaler{}, scaler)
}

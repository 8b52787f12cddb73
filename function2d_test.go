package fengine

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunction2D_Evaluate(t *testing.T) {
	f := New2D("product", "x*y", 0, 1, 0, 2, true)
	require.True(t, f.IsParsed())
	assert.Equal(t, []string{"x", "y"}, f.Variables())

	v, err := f.Evaluate(2, 3)
	require.NoError(t, err)
	assert.Equal(t, 6.0, v)

	xmin, xmax, ymin, ymax := f.Range()
	assert.Equal(t, []float64{0, 1, 0, 2}, []float64{xmin, xmax, ymin, ymax})
}

func TestFunction2D_SampleGrid(t *testing.T) {
	f := New2D("product", "x*y", 0, 1, 0, 1, true)
	grid, err := f.SampleGrid(0, 1, 0, 2, 3)
	require.NoError(t, err)

	exp := Grid2D{
		X: []float64{0, 0.5, 1},
		Y: []float64{0, 1, 2},
		Z: [][]float64{
			{0, 0, 0},
			{0, 0.5, 1},
			{0, 1, 2},
		},
	}
	if diff := cmp.Diff(exp, grid); diff != "" {
		t.Errorf("unexpected grid -want/+got:\n%s", diff)
	}
	stored, ok := f.Grid()
	require.True(t, ok)
	assert.Equal(t, exp, stored)
	assert.Equal(t, 3, f.Points())

	f.SetRange(0, 1, 0, 1)
	_, ok = f.Grid()
	assert.False(t, ok)

	grid, err = f.Sample()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, grid.Y)

	_, err = f.SampleGrid(0, 1, 0, 1, 1)
	assert.Equal(t, ErrInvalidPointCount, err)
}

func TestFunction2D_SampleGridAbortsOnFailure(t *testing.T) {
	f := New2D("pole", "1/(x-y)", 0, 1, 0, 1, true)
	grid, err := f.SampleGrid(0, 1, 0, 1, 2)
	require.Error(t, err)
	assert.Equal(t, KindEvaluation, KindOf(err))
	assert.Equal(t, []float64{0, 1}, grid.X)
	assert.Equal(t, []float64{0, 1}, grid.Y)
	require.Len(t, grid.Z, 1)
	assert.Empty(t, grid.Z[0])

	_, ok := f.Grid()
	assert.False(t, ok)
	assert.Equal(t, err, f.LastError())

	// second row fails after one point
	f = New2D("pole", "1/(x-y-1)", 0, 1, 0, 1, true)
	grid, err = f.SampleGrid(0, 1, 0, 1, 2)
	require.Error(t, err)
	exp := [][]float64{{-1, -0.5}, {}}
	if diff := cmp.Diff(exp, grid.Z); diff != "" {
		t.Errorf("unexpected partial rows -want/+got:\n%s", diff)
	}
}

func TestFunction2D_EvaluateAll(t *testing.T) {
	f := New2D("ratio", "x/y", 0, 1, 0, 1, true)
	out, err := f.EvaluateAll([]float64{1, 2}, []float64{0, 1})
	require.Error(t, err)
	require.Len(t, out, 2)
	assert.True(t, math.IsNaN(out[0][0]))
	assert.Equal(t, 1.0, out[0][1])
	assert.True(t, math.IsNaN(out[1][0]))
	assert.Equal(t, 2.0, out[1][1])

	batch, ok := err.(*BatchError)
	require.True(t, ok, "got %T", err)
	assert.Equal(t, 4, batch.Total)
	require.Len(t, batch.Failures, 2)
	assert.Equal(t, 0, batch.Failures[0].Index)
	assert.Equal(t, 2, batch.Failures[1].Index)
}

func TestFunction2D_Volume(t *testing.T) {
	f := New2D("product", "x*y", 0, 1, 0, 1, true)
	v, err := f.Volume(10, 0, 1, 0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, v, 1e-12)

	v, err = f.Volume2(4, 8, 0, 2, 0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-12)

	_, err = New2D("bad", "x*z", 0, 1, 0, 1, true).Volume(10, 0, 1, 0, 1)
	assert.Equal(t, ErrNotParsed, err)

	_, err = New2D("pole", "1/x", 0, 1, 0, 1, true).Volume(10, 0, 1, 0, 1)
	require.Error(t, err)
	assert.Equal(t, KindEvaluation, KindOf(err))
}

func TestFunction2D_Bins(t *testing.T) {
	f := New2D("sum", "x+y", 0, 1, 0, 1, true)
	bins, err := f.Bins(2, 0, 1, 2, 0, 2)
	require.NoError(t, err)
	exp := Bins2D{
		Title:    "sum",
		BinsX:    2,
		MinX:     0,
		MaxX:     1,
		BinsY:    2,
		MinY:     0,
		MaxY:     2,
		CentersX: []float64{0.25, 0.75},
		CentersY: []float64{0.5, 1.5},
		Heights:  [][]float64{{0.75, 1.75}, {1.25, 2.25}},
	}
	if diff := cmp.Diff(exp, bins); diff != "" {
		t.Errorf("unexpected bins -want/+got:\n%s", diff)
	}
	_, err = f.Bins(0, 0, 1, 2, 0, 1)
	assert.Equal(t, ErrInvalidBinCount, err)

	f = New2D("sum", "x+y", 0, 1, 0, 1, true, WithPoints(2))
	bins, err = f.GridBins()
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 1}, {1, 2}}, bins.Heights)
	assert.Equal(t, 2, bins.BinsX)
	assert.Equal(t, 1.0, bins.MaxY)
}

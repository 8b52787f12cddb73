package fengine

import (
	"math"

	"github.com/datamelt/fengine/expr"
	"github.com/datamelt/fengine/numeric"
)

// Function2D is a function of the variables x and y.
type Function2D struct {
	entity

	xmin, xmax float64
	ymin, ymax float64
	grid       *Grid2D
}

// New2D creates a function of x and y from expression text, see New1D.
func New2D(title, text string, xmin, xmax, ymin, ymax float64, autoParse bool, opts ...Option) *Function2D {
	f := &Function2D{xmin: xmin, xmax: xmax, ymin: ymin, ymax: ymax}
	f.init(title, []string{"x", "y"}, f.dropGrid, opts)
	f.text = expr.Preprocess(text)
	if autoParse {
		_ = f.Parse()
	}
	return f
}

// NewExternal2D creates a function of x and y delegating to c.
func NewExternal2D(title string, c Capability, xmin, xmax, ymin, ymax float64, opts ...Option) (*Function2D, error) {
	if err := checkDimension(c, 2); err != nil {
		return nil, err
	}
	if title == "" {
		title = c.Title()
	}
	f := &Function2D{xmin: xmin, xmax: xmax, ymin: ymin, ymax: ymax}
	f.init(title, []string{"x", "y"}, f.dropGrid, opts)
	f.initExternal(c)
	return f, nil
}

func (f *Function2D) dropGrid() {
	f.grid = nil
}

// Range returns the bounds used by Sample.
func (f *Function2D) Range() (xmin, xmax, ymin, ymax float64) {
	return f.xmin, f.xmax, f.ymin, f.ymax
}

// SetRange sets the bounds used by Sample and drops the sample grid.
func (f *Function2D) SetRange(xmin, xmax, ymin, ymax float64) {
	f.xmin, f.xmax, f.ymin, f.ymax = xmin, xmax, ymin, ymax
	f.dropGrid()
}

// Evaluate returns f(x, y).
func (f *Function2D) Evaluate(x, y float64) (float64, error) {
	return f.valueAt(x, y)
}

func (f *Function2D) eval(x, y float64) (float64, error) {
	return f.valueAt(x, y)
}

// EvaluateAll evaluates the Cartesian product of xs and ys into a matrix,
// out[i][j] = f(xs[i], ys[j]). Failures do not stop the batch, see
// Function1D.EvaluateAll. Failure indexes are row-major, i*len(ys)+j.
func (f *Function2D) EvaluateAll(xs, ys []float64) ([][]float64, error) {
	if !f.IsParsed() {
		return nil, ErrNotParsed
	}
	out := make([][]float64, len(xs))
	var failures []PointFailure
	for i, x := range xs {
		row := make([]float64, len(ys))
		for j, y := range ys {
			v, err := f.valueAt(x, y)
			if err != nil {
				failures = append(failures, PointFailure{Index: i*len(ys) + j, Err: err})
				v = math.NaN()
			}
			row[j] = v
		}
		out[i] = row
	}
	if len(failures) > 0 {
		return out, &BatchError{Total: len(xs) * len(ys), Failures: failures}
	}
	return out, nil
}

// SampleGrid evaluates an n by n grid over the rectangle and stores the
// bounds, the point count and the grid. Points are evaluated row by row and
// sampling stops at the first failure: the returned grid has both axes and
// the rows computed so far, the last one possibly short. No grid is stored
// on failure.
func (f *Function2D) SampleGrid(xmin, xmax, ymin, ymax float64, n int) (Grid2D, error) {
	if n < 2 {
		return Grid2D{}, ErrInvalidPointCount
	}
	if !f.IsParsed() {
		return Grid2D{}, ErrNotParsed
	}
	f.xmin, f.xmax, f.ymin, f.ymax, f.points = xmin, xmax, ymin, ymax, n
	f.grid = nil

	xs := axis(xmin, xmax, n)
	ys := axis(ymin, ymax, n)
	zs := make([][]float64, 0, n)
	for _, x := range xs {
		row := make([]float64, 0, n)
		for _, y := range ys {
			v, err := f.valueAt(x, y)
			if err != nil {
				f.samplingFailed(err)
				return Grid2D{X: xs, Y: ys, Z: append(zs, row)}, err
			}
			row = append(row, v)
		}
		zs = append(zs, row)
	}
	grid := Grid2D{X: xs, Y: ys, Z: zs}
	f.grid = &grid
	return grid, nil
}

// Sample calls SampleGrid with the stored bounds and point count.
func (f *Function2D) Sample() (Grid2D, error) {
	return f.SampleGrid(f.xmin, f.xmax, f.ymin, f.ymax, f.points)
}

// Grid returns the last sampled grid.
func (f *Function2D) Grid() (Grid2D, bool) {
	if f.grid == nil {
		return Grid2D{}, false
	}
	return *f.grid, true
}

// Volume integrates over the rectangle with n cells per axis, see Volume2.
func (f *Function2D) Volume(n int, xmin, xmax, ymin, ymax float64) (float64, error) {
	return f.Volume2(n, n, xmin, xmax, ymin, ymax)
}

// Volume2 integrates over the rectangle split into nx by ny cells with the
// first-order corner average rule of numeric.Volume.
func (f *Function2D) Volume2(nx, ny int, xmin, xmax, ymin, ymax float64) (float64, error) {
	if !f.IsParsed() {
		return 0, ErrNotParsed
	}
	return numeric.Volume(f.eval, nx, ny, xmin, xmax, ymin, ymax)
}

package fengine

import (
	"context"
	"math"
	"runtime"
	"strings"
	"sync"

	"github.com/datamelt/fengine/expr"
	"github.com/datamelt/fengine/numeric"
	"golang.org/x/sync/errgroup"
)

// Function1D is a function of the variable x.
type Function1D struct {
	entity

	min, max float64
	grid     *Grid1D
}

// New1D creates a function of x from expression text. The text is passed
// through expr.Preprocess. With autoParse the text is parsed immediately;
// a parse failure leaves the function unparsed and is available from
// LastError.
func New1D(title, text string, min, max float64, autoParse bool, opts ...Option) *Function1D {
	f := &Function1D{min: min, max: max}
	f.init(title, []string{"x"}, f.dropGrid, opts)
	f.text = expr.Preprocess(text)
	if autoParse {
		_ = f.Parse()
	}
	return f
}

// NewPolynomial1D creates the polynomial c[0] + c[1]*x + c[2]*x*x + ...
func NewPolynomial1D(title string, coeffs []float64, min, max float64, autoParse bool, opts ...Option) *Function1D {
	return New1D(title, polynomial(coeffs), min, max, autoParse, opts...)
}

func polynomial(coeffs []float64) string {
	if len(coeffs) == 0 {
		return "0"
	}
	terms := make([]string, len(coeffs))
	for i, c := range coeffs {
		terms[i] = FormatParameter(c) + strings.Repeat("*x", i)
	}
	return strings.Join(terms, "+")
}

// NewExternal1D creates a function of x delegating to c.
// The title defaults to the capability title when empty.
func NewExternal1D(title string, c Capability, min, max float64, opts ...Option) (*Function1D, error) {
	if err := checkDimension(c, 1); err != nil {
		return nil, err
	}
	if title == "" {
		title = c.Title()
	}
	f := &Function1D{min: min, max: max}
	f.init(title, []string{"x"}, f.dropGrid, opts)
	f.initExternal(c)
	return f, nil
}

func (f *Function1D) dropGrid() {
	f.grid = nil
}

// Min returns the lower bound used by Sample.
func (f *Function1D) Min() float64 { return f.min }

// Max returns the upper bound used by Sample.
func (f *Function1D) Max() float64 { return f.max }

// SetRange sets the bounds used by Sample and drops the sample grid.
func (f *Function1D) SetRange(min, max float64) {
	f.min, f.max = min, max
	f.dropGrid()
}

// Evaluate returns f(x).
func (f *Function1D) Evaluate(x float64) (float64, error) {
	return f.valueAt(x)
}

func (f *Function1D) eval(x float64) (float64, error) {
	return f.valueAt(x)
}

// EvaluateAll evaluates every point of xs independently. Failures do not
// stop the batch: the failing slots hold NaN and the returned *BatchError
// lists each failing index with its cause.
func (f *Function1D) EvaluateAll(xs []float64) ([]float64, error) {
	if !f.IsParsed() {
		return nil, ErrNotParsed
	}
	out := make([]float64, len(xs))
	var failures []PointFailure
	for i, x := range xs {
		v, err := f.valueAt(x)
		if err != nil {
			failures = append(failures, PointFailure{Index: i, Err: err})
			v = math.NaN()
		}
		out[i] = v
	}
	if len(failures) > 0 {
		return out, &BatchError{Total: len(xs), Failures: failures}
	}
	return out, nil
}

func (f *Function1D) startSampling(min, max float64, n int) error {
	if n < 2 {
		return ErrInvalidPointCount
	}
	if !f.IsParsed() {
		return ErrNotParsed
	}
	f.min, f.max, f.points = min, max, n
	f.grid = nil
	return nil
}

// SampleGrid evaluates n points evenly spaced over [min, max], both ends
// included, and stores the bounds, the point count and the grid. Sampling
// stops at the first failing point: the points computed so far are
// returned with the failure and no grid is stored.
func (f *Function1D) SampleGrid(min, max float64, n int) (Grid1D, error) {
	if err := f.startSampling(min, max, n); err != nil {
		return Grid1D{}, err
	}
	xs := axis(min, max, n)
	ys := make([]float64, n)
	for i, x := range xs {
		v, err := f.valueAt(x)
		if err != nil {
			f.samplingFailed(err)
			return Grid1D{X: xs[:i], Y: ys[:i]}, err
		}
		ys[i] = v
	}
	grid := Grid1D{X: xs, Y: ys}
	f.grid = &grid
	return grid, nil
}

// Sample calls SampleGrid with the stored bounds and point count.
func (f *Function1D) Sample() (Grid1D, error) {
	return f.SampleGrid(f.min, f.max, f.points)
}

// Grid returns the last sampled grid.
func (f *Function1D) Grid() (Grid1D, bool) {
	if f.grid == nil {
		return Grid1D{}, false
	}
	return *f.grid, true
}

// how often workers look for cancellation and lower failures
const checkInterval = 64

// SampleGridParallel is SampleGrid with the points split into disjoint
// ranges evaluated by up to workers goroutines, GOMAXPROCS when workers is
// not positive. The result is the one SampleGrid returns: on failure the
// partial grid ends before the lowest failing index. It returns ctx.Err()
// if ctx is done before all points are evaluated.
func (f *Function1D) SampleGridParallel(ctx context.Context, min, max float64, n, workers int) (Grid1D, error) {
	if err := f.startSampling(min, max, n); err != nil {
		return Grid1D{}, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}
	xs := axis(min, max, n)
	ys := make([]float64, n)

	var (
		mu        sync.Mutex
		failIndex = n
		failErr   error
	)
	lowestFailure := func() int {
		mu.Lock()
		defer mu.Unlock()
		return failIndex
	}

	g, gctx := errgroup.WithContext(ctx)
	chunk := (n + workers - 1) / workers
	for start := 0; start < n; start += chunk {
		start, end := start, start+chunk
		if end > n {
			end = n
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if (i-start)%checkInterval == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
					if lowestFailure() < i {
						return nil
					}
				}
				v, err := f.valueAt(xs[i])
				if err != nil {
					mu.Lock()
					if i < failIndex {
						failIndex, failErr = i, err
					}
					mu.Unlock()
					return nil
				}
				ys[i] = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Grid1D{}, err
	}
	if failErr != nil {
		f.samplingFailed(failErr)
		return Grid1D{X: xs[:failIndex], Y: ys[:failIndex]}, failErr
	}
	grid := Grid1D{X: xs, Y: ys}
	f.grid = &grid
	return grid, nil
}

// Integral integrates over [min, max] on n sub-intervals with the named
// method, see numeric.ParseMethod. Unknown names use numeric.DefaultMethod.
func (f *Function1D) Integral(method string, n int, min, max float64) (float64, error) {
	if !f.IsParsed() {
		return 0, ErrNotParsed
	}
	return numeric.Integrate(numeric.ParseMethod(method), f.eval, n, min, max)
}

// IntegralTrapezium integrates over [min, max] with the trapezium rule.
func (f *Function1D) IntegralTrapezium(n int, min, max float64) (float64, error) {
	return f.Integral(numeric.Trapezium.String(), n, min, max)
}

// Differentiate estimates the derivative at n points evenly spaced over [min, max].
func (f *Function1D) Differentiate(n int, min, max float64) ([]float64, error) {
	if !f.IsParsed() {
		return nil, ErrNotParsed
	}
	return numeric.Differentiate(f.eval, n, min, max)
}

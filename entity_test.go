package fengine

import (
	"fmt"
	"math"
	"testing"

	"github.com/datamelt/fengine/expr"
	"github.com/datamelt/fengine/numeric"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capabilityFunc struct {
	title string
	dim   int
	fn    func(x []float64) (float64, error)
}

func (c capabilityFunc) Dimension() int                       { return c.dim }
func (c capabilityFunc) Title() string                        { return c.title }
func (c capabilityFunc) ValueAt(x []float64) (float64, error) { return c.fn(x) }

type recordingDiagnostic struct {
	parse    []string
	sampling []string
	symbolic []string
}

func (d *recordingDiagnostic) ParseFailed(title, text string, err error) {
	d.parse = append(d.parse, title+": "+text)
}

func (d *recordingDiagnostic) SamplingFailed(title string, err error) {
	d.sampling = append(d.sampling, title)
}

func (d *recordingDiagnostic) SymbolicFailed(title, op string, err error) {
	d.symbolic = append(d.symbolic, title+": "+op)
}

func TestExternal1D(t *testing.T) {
	c := capabilityFunc{
		title: "cube",
		dim:   1,
		fn: func(x []float64) (float64, error) {
			if x[0] > 10 {
				return math.Inf(1), nil
			}
			if x[0] < -10 {
				return 0, errors.New("out of range")
			}
			return x[0] * x[0] * x[0], nil
		},
	}
	f, err := NewExternal1D("", c, 0, 2, WithPoints(3))
	require.NoError(t, err)
	assert.Equal(t, "cube", f.Title())
	assert.Equal(t, ModeExternal, f.Mode())
	assert.Equal(t, "external", f.Mode().String())
	assert.True(t, f.IsParsed())
	assert.NoError(t, f.Parse())
	assert.Empty(t, f.Expression())

	v, err := f.Evaluate(2)
	require.NoError(t, err)
	assert.Equal(t, 8.0, v)

	grid, err := f.Sample()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 8}, grid.Y)

	_, err = f.Evaluate(11)
	assert.True(t, errors.Is(err, expr.ErrNonFinite))
	assert.Equal(t, KindEvaluation, KindOf(err))

	_, err = f.Evaluate(-11)
	var evalErr *EvaluationError
	require.True(t, errors.As(err, &evalErr))
	assert.Equal(t, "evaluation failed at (-11): out of range", err.Error())

	integral, err := f.Integral("gauss4", 4, 0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, integral, 1e-12)

	assert.Equal(t, ErrExternalMode, f.SetExpression("x"))
	assert.Equal(t, ErrExternalMode, f.SetParameter("P0", 1))
	assert.Equal(t, ErrExternalMode, f.SetParameters(map[string]float64{"P0": 1}))
	assert.Equal(t, ErrExternalMode, f.Simplify())
	_, err = f.MathML()
	assert.Equal(t, ErrExternalMode, err)
	assert.Equal(t, KindUnsupported, KindOf(err))
}

func TestExternal2D(t *testing.T) {
	c := capabilityFunc{
		title: "plane",
		dim:   2,
		fn:    func(x []float64) (float64, error) { return x[0] + 2*x[1], nil },
	}
	f, err := NewExternal2D("named", c, 0, 1, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "named", f.Title())
	v, err := f.Evaluate(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)

	_, err = NewExternal1D("", c, 0, 1)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.Equal(t, KindInvalidArgument, KindOf(err))

	_, err = NewExternal2D("", nil, 0, 1, 0, 1)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
}

func TestEntity_SetExpressionInvalidates(t *testing.T) {
	f := New1D("f", "x", 0, 1, true, WithPoints(2))
	_, err := f.Sample()
	require.NoError(t, err)

	require.NoError(t, f.SetExpression("2*x"))
	assert.False(t, f.IsParsed())
	_, ok := f.Grid()
	assert.False(t, ok)

	require.NoError(t, f.Parse())
	v, err := f.Evaluate(1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	f.SetTitle("g")
	assert.Equal(t, "g", f.Title())
}

func TestEntity_Diagnostic(t *testing.T) {
	d := &recordingDiagnostic{}
	f := New1D("f", "foo(x)", 0, 1, true, WithDiagnostic(d), WithSymbolic(nil))
	assert.Equal(t, []string{"f: foo(x)"}, d.parse)

	require.NoError(t, f.SetExpression("1/(x-1)"))
	require.NoError(t, f.Parse())
	_, err := f.SampleGrid(0, 1, 2)
	require.Error(t, err)
	assert.Equal(t, []string{"f"}, d.sampling)

	err = f.Simplify()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSymbolic))
	assert.Equal(t, KindSymbolic, KindOf(err))
	assert.Equal(t, []string{"f: simplify"}, d.symbolic)
	assert.Equal(t, err, f.LastError())
}

func TestEntity_Symbolic(t *testing.T) {
	f := New1D("f", "x*1+0", 0, 1, true)
	require.True(t, f.IsParsed())

	require.NoError(t, f.Simplify())
	assert.Equal(t, "x", f.Expression())
	assert.False(t, f.IsParsed())

	require.NoError(t, f.SetExpression("x*(2+3)"))
	require.NoError(t, f.Numeric())
	assert.Equal(t, "x*5", f.Expression())

	for _, transform := range []func() error{f.Expand, f.Factorize, f.Elementary} {
		err := transform()
		require.Error(t, err)
		var symErr *SymbolicError
		require.True(t, errors.As(err, &symErr))
		assert.Equal(t, KindSymbolic, KindOf(err))
		assert.Equal(t, "x*5", f.Expression())
		assert.Equal(t, err, f.LastError())
	}

	err := f.Transform("integrate")
	assert.True(t, errors.Is(err, ErrUnknownOperation))

	ml, err := f.MathML()
	require.NoError(t, err)
	assert.Contains(t, ml, "<mi>x</mi>")

	src, err := f.Source()
	require.NoError(t, err)
	assert.Equal(t, "x * 5.0", src)

	// a successful Parse clears the recorded failure
	require.NoError(t, f.Parse())
	assert.NoError(t, f.LastError())
}

func TestSubstituteParameter(t *testing.T) {
	cases := []struct {
		text  string
		name  string
		value float64
		exp   string
	}{
		{text: "P0*x", name: "P0", value: 5, exp: "5*x"},
		{text: "P0*x+P0", name: "P0", value: 0.5, exp: "0.5*x+0.5"},
		{text: "x^P0", name: "P0", value: -2, exp: "x^(-2)"},
		{text: "x", name: "P0", value: 1, exp: "x"},
		{text: "a*x", name: "a", value: 1e-20, exp: "1e-20*x"},
	}
	for _, tc := range cases {
		got, err := SubstituteParameter(tc.text, tc.name, tc.value)
		require.NoError(t, err, tc.text)
		assert.Equal(t, tc.exp, got, tc.text)
	}

	for _, v := range []float64{math.NaN(), math.Inf(-1)} {
		got, err := SubstituteParameter("P0*x", "P0", v)
		assert.True(t, errors.Is(err, ErrInvalidParameter))
		assert.Equal(t, "P0*x", got)
	}
}

func TestKindOf(t *testing.T) {
	_, parseErr := expr.Parse("x+", "x")
	cases := []struct {
		err  error
		kind Kind
	}{
		{err: nil, kind: KindNone},
		{err: parseErr, kind: KindParse},
		{err: ErrNotParsed, kind: KindNotParsed},
		{err: ErrInvalidPointCount, kind: KindInvalidPointCount},
		{err: ErrInvalidBinCount, kind: KindInvalidPointCount},
		{err: numeric.ErrInsufficientPoints, kind: KindInsufficientPoints},
		{err: &EvaluationError{X: []float64{1}, Cause: expr.ErrDomain}, kind: KindEvaluation},
		{err: &numeric.IntegrationError{Method: "gauss4", Cause: expr.ErrDomain}, kind: KindEvaluation},
		{err: &SymbolicError{Op: OpSimplify, Cause: parseErr}, kind: KindSymbolic},
		{err: ErrExternalMode, kind: KindUnsupported},
		{err: numeric.ErrEmptyRange, kind: KindInvalidArgument},
		{err: errors.Wrap(ErrInvalidParameter, "x"), kind: KindInvalidArgument},
		{err: fmt.Errorf("wrapped: %w", ErrNotParsed), kind: KindNotParsed},
		{err: errors.New("other"), kind: KindUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, KindOf(tc.err), "%v", tc.err)
	}
	assert.Equal(t, "invalid_point_count", KindInvalidPointCount.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

package fengine

import (
	"math"

	"github.com/datamelt/fengine/expr"
	"github.com/pkg/errors"
)

// Mode is the evaluation strategy of a function, fixed at construction.
type Mode int

const (
	// ModeExpression evaluates compiled expression text.
	ModeExpression Mode = iota
	// ModeExternal delegates evaluation to a Capability.
	ModeExternal
)

func (m Mode) String() string {
	switch m {
	case ModeExpression:
		return "expression"
	case ModeExternal:
		return "external"
	}
	return "unknown"
}

// Capability is an externally supplied function that evaluates itself.
type Capability interface {
	// Dimension is the number of variables, 1 or 2.
	Dimension() int
	// ValueAt evaluates the function at x, len(x) == Dimension().
	ValueAt(x []float64) (float64, error)
	Title() string
}

// ErrDimensionMismatch is returned when a Capability is wrapped by a
// function of a different arity.
var ErrDimensionMismatch = errors.New("capability dimension does not match")

// strategy evaluates a function at a point.
type strategy interface {
	valueAt(x []float64) (float64, error)
}

// compiled evaluates a parsed expression.
type compiled struct {
	expression *expr.Expression
	variables  []string
	pool       expr.VarsPool
}

func newCompiled(e *expr.Expression, variables []string) *compiled {
	return &compiled{
		expression: e,
		variables:  variables,
		pool:       expr.NewVarsPool(variables...),
	}
}

func (c *compiled) valueAt(x []float64) (float64, error) {
	vars := c.pool.Get()
	defer c.pool.Put(vars)
	for i, name := range c.variables {
		vars[name] = x[i]
	}
	return c.expression.Eval(vars)
}

// external delegates to a Capability.
type external struct {
	capability Capability
}

func (e external) valueAt(x []float64) (float64, error) {
	v, err := e.capability.ValueAt(x)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, expr.ErrNonFinite
	}
	return v, nil
}

func checkDimension(c Capability, dim int) error {
	if c == nil {
		return errors.Wrap(ErrDimensionMismatch, "nil capability")
	}
	if c.Dimension() != dim {
		return errors.Wrapf(ErrDimensionMismatch, "capability %q has dimension %d, want %d", c.Title(), c.Dimension(), dim)
	}
	return nil
}

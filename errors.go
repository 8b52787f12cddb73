package fengine

import (
	"fmt"
	"strings"

	"github.com/datamelt/fengine/expr"
	"github.com/datamelt/fengine/numeric"
	"github.com/pkg/errors"
)

var (
	// ErrNotParsed is returned when an expression function is used before a
	// successful Parse.
	ErrNotParsed = errors.New("function is not parsed")
	// ErrInvalidPointCount is returned when fewer than 2 sample points are requested.
	ErrInvalidPointCount = errors.New("point count must be at least 2")
	// ErrInvalidBinCount is returned when fewer than 1 bin is requested.
	ErrInvalidBinCount = errors.New("bin count must be at least 1")
	// ErrExternalMode is returned for text operations on a function wrapping a Capability.
	ErrExternalMode = errors.New("operation not supported by external functions")
	// ErrNoSymbolic is returned by symbolic transforms when no Symbolic is configured.
	ErrNoSymbolic = errors.New("no symbolic collaborator configured")
	// ErrUnknownOperation is the cause of a SymbolicError for an unknown operation name.
	ErrUnknownOperation = errors.New("unknown symbolic operation")
	// ErrInvalidParameter is returned for an empty parameter name or a non-finite value.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// EvaluationError is a failed evaluation at a specific point.
type EvaluationError struct {
	X     []float64
	Cause error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation failed at %s: %v", formatPoint(e.X), e.Cause)
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// PointFailure is one failed point of a batch evaluation.
type PointFailure struct {
	// Index of the point, row-major for two variable functions.
	Index int
	Err   error
}

// BatchError lists every point that failed during a batch evaluation.
type BatchError struct {
	Total    int
	Failures []PointFailure
}

func (e *BatchError) Error() string {
	first := e.Failures[0]
	return fmt.Sprintf("%d of %d evaluations failed, first at index %d: %v", len(e.Failures), e.Total, first.Index, first.Err)
}

// SymbolicError is a failure reported by the Symbolic collaborator.
type SymbolicError struct {
	Op    string
	Cause error
}

func (e *SymbolicError) Error() string {
	return fmt.Sprintf("symbolic %s failed: %v", e.Op, e.Cause)
}

func (e *SymbolicError) Unwrap() error {
	return e.Cause
}

// Kind classifies errors returned by this package and its sub packages.
type Kind int

const (
	KindNone Kind = iota
	KindParse
	KindNotParsed
	KindEvaluation
	KindInvalidPointCount
	KindInsufficientPoints
	KindSymbolic
	KindUnsupported
	KindInvalidArgument
	KindUnknown
)

var kindNames = [...]string{
	KindNone:               "none",
	KindParse:              "parse",
	KindNotParsed:          "not_parsed",
	KindEvaluation:         "evaluation",
	KindInvalidPointCount:  "invalid_point_count",
	KindInsufficientPoints: "insufficient_points",
	KindSymbolic:           "symbolic",
	KindUnsupported:        "unsupported",
	KindInvalidArgument:    "invalid_argument",
	KindUnknown:            "unknown",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// KindOf reports the kind of err.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var (
		parseErr   *expr.ParseError
		symErr     *SymbolicError
		evalErr    *EvaluationError
		batchErr   *BatchError
		integErr   *numeric.IntegrationError
		derivErr   *numeric.DerivativeError
		exprEvlErr *expr.EvalError
	)
	switch {
	case errors.As(err, &symErr), errors.Is(err, ErrNoSymbolic):
		return KindSymbolic
	case errors.As(err, &parseErr):
		return KindParse
	case errors.Is(err, ErrNotParsed):
		return KindNotParsed
	case errors.Is(err, ErrInvalidPointCount), errors.Is(err, ErrInvalidBinCount):
		return KindInvalidPointCount
	case errors.Is(err, numeric.ErrInsufficientPoints):
		return KindInsufficientPoints
	case errors.As(err, &evalErr), errors.As(err, &batchErr),
		errors.As(err, &integErr), errors.As(err, &derivErr),
		errors.As(err, &exprEvlErr), errors.Is(err, numeric.ErrNonFinite):
		return KindEvaluation
	case errors.Is(err, ErrExternalMode):
		return KindUnsupported
	case errors.Is(err, ErrInvalidParameter),
		errors.Is(err, numeric.ErrInvalidIntervals),
		errors.Is(err, numeric.ErrEmptyRange),
		errors.Is(err, ErrDimensionMismatch):
		return KindInvalidArgument
	}
	return KindUnknown
}

func formatPoint(p []float64) string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = expr.FormatFloat(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

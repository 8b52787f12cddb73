package numeric

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidIntervals is returned when fewer than one sub-interval is requested.
	ErrInvalidIntervals = errors.New("number of intervals must be at least 1")
	// ErrInsufficientPoints is returned when a derivative is requested on fewer than 3 points.
	ErrInsufficientPoints = errors.New("at least 3 points are required")
	// ErrEmptyRange is returned when a derivative is requested on a zero width range.
	ErrEmptyRange = errors.New("range must not be empty")
	// ErrNonFinite is returned when a result overflows.
	ErrNonFinite = errors.New("non-finite result")
)

// IntegrationError reports the point at which the integrand failed.
type IntegrationError struct {
	Method string
	// X is the failing point, (x) or (x, y).
	X     []float64
	Cause error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("%s integration failed at %s: %v", e.Method, formatPoint(e.X), e.Cause)
}

func (e *IntegrationError) Unwrap() error {
	return e.Cause
}

// DerivativeError reports the sample point at which the function failed.
type DerivativeError struct {
	X     float64
	Cause error
}

func (e *DerivativeError) Error() string {
	return fmt.Sprintf("derivative failed at %s: %v", formatPoint([]float64{e.X}), e.Cause)
}

func (e *DerivativeError) Unwrap() error {
	return e.Cause
}

func formatPoint(p []float64) string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

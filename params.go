package fengine

import (
	"math"
	"strings"

	"github.com/datamelt/fengine/expr"
	"github.com/pkg/errors"
)

// FormatParameter renders value as the literal substituted for a parameter.
// Negative values are wrapped in parentheses so that "x^P0" stays valid.
func FormatParameter(value float64) string {
	s := expr.FormatFloat(value)
	if value < 0 {
		return "(" + s + ")"
	}
	return s
}

// SubstituteParameter replaces every occurrence of name in text by the
// literal value. The match is a plain case-sensitive substring match: a
// name that is part of another identifier, a function name or another
// parameter name (P1 inside P10) is replaced there too. Choose parameter
// names that do not collide, substitute longer names first, or use
// SetParameters which substitutes in sorted order.
func SubstituteParameter(text, name string, value float64) (string, error) {
	if name == "" {
		return text, errors.Wrap(ErrInvalidParameter, "empty parameter name")
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return text, errors.Wrapf(ErrInvalidParameter, "parameter %q has non-finite value %v", name, value)
	}
	return strings.ReplaceAll(text, name, FormatParameter(value)), nil
}

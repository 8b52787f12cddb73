package expr

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

var (
	// ErrDomain is the cause reported when a function argument lies outside
	// the function's real domain.
	ErrDomain = errors.New("argument outside function domain")
	// ErrDivisionByZero is the cause reported for x/0 and x%0.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrNonFinite is the cause reported when an operation yields NaN or ±Inf.
	ErrNonFinite = errors.New("non-finite result")
	// ErrUndefinedVariable is the cause reported when a referenced variable
	// has no binding.
	ErrUndefinedVariable = errors.New("undefined variable")
)

// Func is a builtin function of one real argument.
type Func interface {
	Call(x float64) (float64, error)
}

// mathFunc adapts a math package function with an optional domain check.
type mathFunc struct {
	f func(float64) float64
	// inDomain reports whether x is a valid argument, nil means all reals.
	inDomain func(float64) bool
}

func (m mathFunc) Call(x float64) (float64, error) {
	if m.inDomain != nil && !m.inDomain(x) {
		return 0, ErrDomain
	}
	return m.f(x), nil
}

func nonNegative(x float64) bool { return x >= 0 }
func positive(x float64) bool    { return x > 0 }
func unitInterval(x float64) bool {
	return x >= -1 && x <= 1
}

var builtins map[string]Func

func init() {
	builtins = map[string]Func{
		"abs":   mathFunc{f: math.Abs},
		"acos":  mathFunc{f: math.Acos, inDomain: unitInterval},
		"asin":  mathFunc{f: math.Asin, inDomain: unitInterval},
		"atan":  mathFunc{f: math.Atan},
		"cbrt":  mathFunc{f: math.Cbrt},
		"ceil":  mathFunc{f: math.Ceil},
		"cos":   mathFunc{f: math.Cos},
		"cosh":  mathFunc{f: math.Cosh},
		"exp":   mathFunc{f: math.Exp},
		"floor": mathFunc{f: math.Floor},
		"log":   mathFunc{f: math.Log, inDomain: positive},
		"log10": mathFunc{f: math.Log10, inDomain: positive},
		"sin":   mathFunc{f: math.Sin},
		"sinh":  mathFunc{f: math.Sinh},
		"sqrt":  mathFunc{f: math.Sqrt, inDomain: nonNegative},
		"tan":   mathFunc{f: math.Tan},
		"tanh":  mathFunc{f: math.Tanh},
	}
}

// Functions returns the sorted names of the builtin functions.
func Functions() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsFunction reports whether name is a builtin function.
func IsFunction(name string) bool {
	_, ok := builtins[name]
	return ok
}

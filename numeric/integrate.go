package numeric

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Func is a function of one variable that may fail.
type Func func(x float64) (float64, error)

// Func2 is a function of two variables that may fail.
type Func2 func(x, y float64) (float64, error)

// Method selects a one dimensional quadrature rule.
type Method int

const (
	// Gauss4 is the composite 4-point Gauss-Legendre rule, and the default.
	Gauss4 Method = iota
	// Gauss8 is the composite 8-point Gauss-Legendre rule.
	Gauss8
	// Richardson extrapolates two trapezium estimates, (4*T(2N) - T(N)) / 3.
	Richardson
	// Simpson is the composite Simpson rule with N rounded up to even.
	Simpson
	// Trapezium is the composite trapezium rule.
	Trapezium
)

// DefaultMethod is used for unrecognised method names.
const DefaultMethod = Gauss4

var methodNames = [...]string{
	Gauss4:     "gauss4",
	Gauss8:     "gauss8",
	Richardson: "richardson",
	Simpson:    "simpson",
	Trapezium:  "trapezium",
}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return methodNames[DefaultMethod]
	}
	return methodNames[m]
}

// LookupMethod returns the method with the given case-insensitive name.
func LookupMethod(name string) (Method, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for m, n := range methodNames {
		if n == name {
			return Method(m), true
		}
	}
	return DefaultMethod, false
}

// ParseMethod returns the method with the given name.
// Unknown names select DefaultMethod.
func ParseMethod(name string) Method {
	m, _ := LookupMethod(name)
	return m
}

// Methods returns the names of all methods.
func Methods() []string {
	return append([]string(nil), methodNames[:]...)
}

// Integrate integrates f over [min, max] on n sub-intervals using method.
func Integrate(method Method, f Func, n int, min, max float64) (float64, error) {
	if n < 1 {
		return 0, ErrInvalidIntervals
	}
	var (
		v   float64
		err error
	)
	switch method {
	case Gauss8:
		v, err = gauss(method, gauss8Nodes, gauss8Weights, f, n, min, max)
	case Richardson:
		v, err = richardson(f, n, min, max)
	case Simpson:
		v, err = simpson(f, n, min, max)
	case Trapezium:
		v, err = trapezium(Trapezium, f, n, min, max)
	default:
		method = DefaultMethod
		v, err = gauss(Gauss4, gauss4Nodes, gauss4Weights, f, n, min, max)
	}
	if err != nil {
		return 0, err
	}
	return finite(method.String(), v)
}

// Nodes and weights of the Gauss-Legendre rules on [-1, 1].
var (
	gauss4Nodes = []float64{
		-0.8611363115940526, -0.3399810435848563,
		0.3399810435848563, 0.8611363115940526,
	}
	gauss4Weights = []float64{
		0.3478548451374538, 0.6521451548625461,
		0.6521451548625461, 0.3478548451374538,
	}
	gauss8Nodes = []float64{
		-0.9602898564975363, -0.7966664774136267, -0.5255324099163290, -0.1834346424956498,
		0.1834346424956498, 0.5255324099163290, 0.7966664774136267, 0.9602898564975363,
	}
	gauss8Weights = []float64{
		0.1012285362903763, 0.2223810344533745, 0.3137066458778873, 0.3626837833783620,
		0.3626837833783620, 0.3137066458778873, 0.2223810344533745, 0.1012285362903763,
	}
)

func gauss(method Method, nodes, weights []float64, f Func, n int, min, max float64) (float64, error) {
	h := (max - min) / float64(n)
	half := h / 2
	sum := 0.0
	for i := 0; i < n; i++ {
		mid := min + float64(i)*h + half
		for k, node := range nodes {
			x := mid + half*node
			v, err := f(x)
			if err != nil {
				return 0, &IntegrationError{Method: method.String(), X: []float64{x}, Cause: err}
			}
			sum += weights[k] * v
		}
	}
	return sum * half, nil
}

// abscissa returns the i-th of n+1 equally spaced points, hitting max exactly.
func abscissa(i, n int, min, max float64) float64 {
	if i == n {
		return max
	}
	return min + float64(i)*(max-min)/float64(n)
}

func trapezium(method Method, f Func, n int, min, max float64) (float64, error) {
	h := (max - min) / float64(n)
	sum := 0.0
	for i := 0; i <= n; i++ {
		x := abscissa(i, n, min, max)
		v, err := f(x)
		if err != nil {
			return 0, &IntegrationError{Method: method.String(), X: []float64{x}, Cause: err}
		}
		if i == 0 || i == n {
			v /= 2
		}
		sum += v
	}
	return sum * h, nil
}

func simpson(f Func, n int, min, max float64) (float64, error) {
	if n%2 == 1 {
		n++
	}
	h := (max - min) / float64(n)
	sum := 0.0
	for i := 0; i <= n; i++ {
		x := abscissa(i, n, min, max)
		v, err := f(x)
		if err != nil {
			return 0, &IntegrationError{Method: Simpson.String(), X: []float64{x}, Cause: err}
		}
		switch {
		case i == 0 || i == n:
		case i%2 == 1:
			v *= 4
		default:
			v *= 2
		}
		sum += v
	}
	return sum * h / 3, nil
}

func richardson(f Func, n int, min, max float64) (float64, error) {
	coarse, err := trapezium(Richardson, f, n, min, max)
	if err != nil {
		return 0, err
	}
	fine, err := trapezium(Richardson, f, 2*n, min, max)
	if err != nil {
		return 0, err
	}
	return (4*fine - coarse) / 3, nil
}

// Volume integrates f over the rectangle [xmin, xmax] x [ymin, ymax] split
// into nx by ny cells. Each cell contributes the average of its four corner
// values times its area. This is a first-order (bilinear) approximation,
// exact only for functions linear in each variable.
func Volume(f Func2, nx, ny int, xmin, xmax, ymin, ymax float64) (float64, error) {
	if nx < 1 || ny < 1 {
		return 0, ErrInvalidIntervals
	}
	// corner values of one row of cells at a time
	prev := make([]float64, nx+1)
	cur := make([]float64, nx+1)
	row := func(j int, out []float64) error {
		y := abscissa(j, ny, ymin, ymax)
		for i := range out {
			x := abscissa(i, nx, xmin, xmax)
			v, err := f(x, y)
			if err != nil {
				return &IntegrationError{Method: "volume", X: []float64{x, y}, Cause: err}
			}
			out[i] = v
		}
		return nil
	}
	if err := row(0, prev); err != nil {
		return 0, err
	}
	area := (xmax - xmin) / float64(nx) * (ymax - ymin) / float64(ny)
	sum := 0.0
	for j := 1; j <= ny; j++ {
		if err := row(j, cur); err != nil {
			return 0, err
		}
		for i := 0; i < nx; i++ {
			sum += (prev[i] + prev[i+1] + cur[i] + cur[i+1]) / 4
		}
		prev, cur = cur, prev
	}
	return finite("volume", sum*area)
}

func finite(method string, v float64) (float64, error) {
	if !isFinite(v) {
		return 0, errors.Wrapf(ErrNonFinite, "%s integral", method)
	}
	return v, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

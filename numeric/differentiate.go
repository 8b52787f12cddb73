package numeric

// Differentiate estimates f' at n equally spaced points across [min, max].
// Interior points use central differences, both ends use the second order
// three-point one-sided formulas, so the estimate is exact for quadratics.
func Differentiate(f Func, n int, min, max float64) ([]float64, error) {
	if n < 3 {
		return nil, ErrInsufficientPoints
	}
	if min == max {
		return nil, ErrEmptyRange
	}
	last := n - 1
	ys := make([]float64, n)
	for i := range ys {
		x := abscissa(i, last, min, max)
		v, err := f(x)
		if err != nil {
			return nil, &DerivativeError{X: x, Cause: err}
		}
		ys[i] = v
	}

	h2 := 2 * (max - min) / float64(last)
	out := make([]float64, n)
	out[0] = (-3*ys[0] + 4*ys[1] - ys[2]) / h2
	for i := 1; i < last; i++ {
		out[i] = (ys[i+1] - ys[i-1]) / h2
	}
	out[last] = (3*ys[last] - 4*ys[last-1] + ys[last-2]) / h2
	for i, d := range out {
		if !isFinite(d) {
			return nil, &DerivativeError{X: abscissa(i, last, min, max), Cause: ErrNonFinite}
		}
	}
	return out, nil
}

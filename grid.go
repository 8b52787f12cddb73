package fengine

// Grid1D is a sampled one variable function, Y[i] = f(X[i]).
type Grid1D struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// Len returns the number of points.
func (g Grid1D) Len() int {
	return len(g.X)
}

// Grid2D is a sampled two variable function, Z[i][j] = f(X[i], Y[j]).
type Grid2D struct {
	X []float64   `json:"x"`
	Y []float64   `json:"y"`
	Z [][]float64 `json:"z"`
}

// axis returns n equally spaced points from min to max inclusive.
// The last point is max exactly.
func axis(min, max float64, n int) []float64 {
	xs := make([]float64, n)
	if n == 1 {
		xs[0] = min
		return xs
	}
	d := (max - min) / float64(n-1)
	for i := range xs {
		xs[i] = min + float64(i)*d
	}
	xs[n-1] = max
	return xs
}

// centers returns the centers of nbins equal bins spanning [min, max].
func centers(min, max float64, nbins int) []float64 {
	cs := make([]float64, nbins)
	d := (max - min) / float64(nbins)
	for i := range cs {
		cs[i] = min + (float64(i)+0.5)*d
	}
	return cs
}

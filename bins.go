package fengine

// Bins1D hands sampled values over to a histogram: Heights[i] is the
// function value at Centers[i].
type Bins1D struct {
	Title   string    `json:"title"`
	Bins    int       `json:"bins"`
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
	Centers []float64 `json:"centers"`
	Heights []float64 `json:"heights"`
}

// Bins2D is the two variable form of Bins1D, Heights[i][j] is the value at
// (CentersX[i], CentersY[j]).
type Bins2D struct {
	Title    string      `json:"title"`
	BinsX    int         `json:"bins_x"`
	MinX     float64     `json:"min_x"`
	MaxX     float64     `json:"max_x"`
	BinsY    int         `json:"bins_y"`
	MinY     float64     `json:"min_y"`
	MaxY     float64     `json:"max_y"`
	CentersX []float64   `json:"centers_x"`
	CentersY []float64   `json:"centers_y"`
	Heights  [][]float64 `json:"heights"`
}

// GridBins uses the sampled grid as bins, one per point, sampling first if
// there is no grid.
func (f *Function1D) GridBins() (Bins1D, error) {
	grid, ok := f.Grid()
	if !ok {
		var err error
		if grid, err = f.Sample(); err != nil {
			return Bins1D{}, err
		}
	}
	n := grid.Len()
	return Bins1D{
		Title:   f.title,
		Bins:    n,
		Min:     grid.X[0],
		Max:     grid.X[n-1],
		Centers: append([]float64(nil), grid.X...),
		Heights: append([]float64(nil), grid.Y...),
	}, nil
}

// Bins evaluates the function at the centers of nbins equal bins over [min, max].
func (f *Function1D) Bins(nbins int, min, max float64) (Bins1D, error) {
	if nbins < 1 {
		return Bins1D{}, ErrInvalidBinCount
	}
	if !f.IsParsed() {
		return Bins1D{}, ErrNotParsed
	}
	cs := centers(min, max, nbins)
	hs := make([]float64, nbins)
	for i, c := range cs {
		v, err := f.valueAt(c)
		if err != nil {
			return Bins1D{}, err
		}
		hs[i] = v
	}
	return Bins1D{
		Title:   f.title,
		Bins:    nbins,
		Min:     min,
		Max:     max,
		Centers: cs,
		Heights: hs,
	}, nil
}

// GridBins uses the sampled grid as bins, sampling first if there is no grid.
func (f *Function2D) GridBins() (Bins2D, error) {
	grid, ok := f.Grid()
	if !ok {
		var err error
		if grid, err = f.Sample(); err != nil {
			return Bins2D{}, err
		}
	}
	nx, ny := len(grid.X), len(grid.Y)
	heights := make([][]float64, nx)
	for i, row := range grid.Z {
		heights[i] = append([]float64(nil), row...)
	}
	return Bins2D{
		Title:    f.title,
		BinsX:    nx,
		MinX:     grid.X[0],
		MaxX:     grid.X[nx-1],
		BinsY:    ny,
		MinY:     grid.Y[0],
		MaxY:     grid.Y[ny-1],
		CentersX: append([]float64(nil), grid.X...),
		CentersY: append([]float64(nil), grid.Y...),
		Heights:  heights,
	}, nil
}

// Bins evaluates the function at the centers of an nx by ny bin grid.
func (f *Function2D) Bins(nx int, xmin, xmax float64, ny int, ymin, ymax float64) (Bins2D, error) {
	if nx < 1 || ny < 1 {
		return Bins2D{}, ErrInvalidBinCount
	}
	if !f.IsParsed() {
		return Bins2D{}, ErrNotParsed
	}
	cx := centers(xmin, xmax, nx)
	cy := centers(ymin, ymax, ny)
	heights := make([][]float64, nx)
	for i, x := range cx {
		row := make([]float64, ny)
		for j, y := range cy {
			v, err := f.valueAt(x, y)
			if err != nil {
				return Bins2D{}, err
			}
			row[j] = v
		}
		heights[i] = row
	}
	return Bins2D{
		Title:    f.title,
		BinsX:    nx,
		MinX:     xmin,
		MaxX:     xmax,
		BinsY:    ny,
		MinY:     ymin,
		MaxY:     ymax,
		CentersX: cx,
		CentersY: cy,
		Heights:  heights,
	}, nil
}

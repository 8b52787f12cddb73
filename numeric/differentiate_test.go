package numeric

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDifferentiateSquare(t *testing.T) {
	d, err := Differentiate(pure(square), 11, 0, 1)
	require.NoError(t, err)
	require.Len(t, d, 11)
	for i, v := range d {
		x := float64(i) / 10
		assert.InDelta(t, 2*x, v, 1e-9, "x=%v", x)
	}
}

func TestDifferentiateConverges(t *testing.T) {
	maxErr := func(n int) float64 {
		d, err := Differentiate(pure(math.Sin), n, 0, math.Pi)
		require.NoError(t, err)
		worst := 0.0
		for i, v := range d {
			x := math.Pi * float64(i) / float64(n-1)
			worst = math.Max(worst, math.Abs(v-math.Cos(x)))
		}
		return worst
	}
	coarse, fine := maxErr(11), maxErr(101)
	assert.Less(t, fine, coarse)
	assert.Less(t, fine, 1e-3)
}

func TestDifferentiateErrors(t *testing.T) {
	_, err := Differentiate(pure(square), 2, 0, 1)
	assert.Equal(t, ErrInsufficientPoints, err)

	_, err = Differentiate(pure(square), 5, 1, 1)
	assert.Equal(t, ErrEmptyRange, err)

	errBoom := errors.New("boom")
	f := func(x float64) (float64, error) {
		if x == 1 {
			return 0, errBoom
		}
		return x, nil
	}
	_, err = Differentiate(f, 3, 0, 1)
	require.Error(t, err)
	de, ok := err.(*DerivativeError)
	require.True(t, ok, "got %T", err)
	assert.Equal(t, 1.0, de.X)
	assert.True(t, errors.Is(err, errBoom))
}

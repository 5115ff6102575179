package spi

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestRecoverOrderFourScenario(t *testing.T) {
	b, err := BuildBasis(2)
	require.NoError(t, err)

	got, err := Recover(b.H, mat.NewVecDense(4, []float64{10, -2, -4, 0}))
	require.NoError(t, err)

	want := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	assert.True(t, mat.EqualApprox(want, got, 1e-12), "recovered\n%v", mat.Formatted(got))
}

func TestNoiselessRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for _, px := range []int{1, 2, 4, 8} {
		b, err := BuildBasis(px)
		require.NoError(t, err)
		rec, err := NewReconstructor(b.H)
		require.NoError(t, err)

		object := mat.NewDense(px, px, nil)
		for i := 0; i < px; i++ {
			for j := 0; j < px; j++ {
				object.Set(i, j, 255*rng.Float64())
			}
		}

		m, err := Project(b.Plus, b.Minus, object)
		require.NoError(t, err)
		got, err := rec.Recover(m.Diff)
		require.NoError(t, err)
		assert.True(t, mat.EqualApprox(object, got, 1e-9), "px=%d round trip failed", px)
	}
}

func TestRecoverKeepsPixelPositions(t *testing.T) {
	// An asymmetric object catches a row/column-major mix-up between the
	// forward flatten and the inverse reshape.
	b, err := BuildBasis(4)
	require.NoError(t, err)

	object := mat.NewDense(4, 4, nil)
	object.Set(0, 3, 7)
	object.Set(2, 1, 3)

	m, err := Project(b.Plus, b.Minus, object)
	require.NoError(t, err)
	got, err := Recover(b.H, m.Diff)
	require.NoError(t, err)

	assert.InDelta(t, 7, got.At(0, 3), 1e-12)
	assert.InDelta(t, 0, got.At(3, 0), 1e-12)
	assert.InDelta(t, 3, got.At(2, 1), 1e-12)
	assert.InDelta(t, 0, got.At(1, 2), 1e-12)
}

func TestRecoverSingularMatrix(t *testing.T) {
	tests := []struct {
		name string
		h    *mat.Dense
	}{
		{"rank deficient", mat.NewDense(2, 2, []float64{1, 2, 2, 4})},
		{"zero", mat.NewDense(4, 4, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, _ := tt.h.Dims()
			_, err := Recover(tt.h, mat.NewVecDense(n, nil))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSingularMatrix)
		})
	}
}

func TestRecoverDimensionErrors(t *testing.T) {
	_, err := NewReconstructor(mat.NewDense(2, 3, nil))
	assert.ErrorIs(t, err, ErrInvalidOrder)

	b, err := BuildBasis(2)
	require.NoError(t, err)
	rec, err := NewReconstructor(b.H)
	require.NoError(t, err)

	_, err = rec.Recover(mat.NewVecDense(3, nil))
	var dimErr *DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 4, dimErr.Expected)
	assert.Equal(t, 3, dimErr.Actual)
}

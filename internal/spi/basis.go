package spi

import (
	"math"
	"math/bits"

	"gonum.org/v1/gonum/mat"
)

// Basis holds the signed Hadamard sensing matrix and its two non-negative
// decompositions. Row i of Plus, reshaped row-major, is the i-th pattern shown
// on the modulator; Minus is its complement.
type Basis struct {
	Resolution int // px
	Order      int // px*px

	H     *mat.Dense // entries in {-1, +1}, H*Hᵗ = Order*I
	Plus  *mat.Dense // (H+1)/2
	Minus *mat.Dense // (1-H)/2
}

// CheckResolution reports whether px yields a supported Hadamard order
// without building anything.
func CheckResolution(px int) error {
	// Both px*px and the n*n matrix size must fit in an int.
	if px <= 0 {
		return &InvalidOrderError{Resolution: px, Order: px * px}
	}
	if px > math.MaxInt/px {
		return &InvalidOrderError{Resolution: px}
	}
	n := px * px
	if n&(n-1) != 0 {
		return &InvalidOrderError{Resolution: px, Order: n}
	}
	if n > math.MaxInt/n {
		return &InvalidOrderError{Resolution: px}
	}
	return nil
}

// BuildBasis constructs the Sylvester-Hadamard basis for a px×px scene.
// px*px must be a power of two.
func BuildBasis(px int) (*Basis, error) {
	if err := CheckResolution(px); err != nil {
		return nil, err
	}
	n := px * px

	h := make([]float64, n*n)
	plus := make([]float64, n*n)
	minus := make([]float64, n*n)
	for i := 0; i < n; i++ {
		row := i * n
		for j := 0; j < n; j++ {
			// Sylvester entry: sign flips once per shared set bit.
			if bits.OnesCount(uint(i&j))%2 == 0 {
				h[row+j] = 1
				plus[row+j] = 1
			} else {
				h[row+j] = -1
				minus[row+j] = 1
			}
		}
	}

	return &Basis{
		Resolution: px,
		Order:      n,
		H:          mat.NewDense(n, n, h),
		Plus:       mat.NewDense(n, n, plus),
		Minus:      mat.NewDense(n, n, minus),
	}, nil
}

// Pattern returns row i of Plus as a px×px mask.
func (b *Basis) Pattern(i int) (*mat.Dense, error) {
	if i < 0 || i >= b.Order {
		return nil, &DimensionMismatchError{Op: "pattern index", Expected: b.Order - 1, Actual: i}
	}
	row := mat.Row(nil, i, b.Plus)
	return mat.NewDense(b.Resolution, b.Resolution, row), nil
}

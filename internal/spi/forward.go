package spi

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Measurement is one differential acquisition: the two non-negative branch
// readings and their signed difference.
type Measurement struct {
	Plus  *mat.VecDense
	Minus *mat.VecDense
	Diff  *mat.VecDense
}

// Flatten returns a square object as a row-major vector. Reshape is its inverse;
// every stage of the pipeline goes through this pair.
func Flatten(object mat.Matrix) (*mat.VecDense, error) {
	r, c := object.Dims()
	if r != c {
		return nil, &DimensionMismatchError{Op: "flatten non-square object", Expected: r, Actual: c}
	}
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data = append(data, object.At(i, j))
		}
	}
	return mat.NewVecDense(len(data), data), nil
}

// Reshape folds a length px² vector back into a px×px matrix, row-major.
func Reshape(v mat.Vector) (*mat.Dense, error) {
	n := v.Len()
	px := int(math.Round(math.Sqrt(float64(n))))
	if px*px != n || n == 0 {
		return nil, &DimensionMismatchError{Op: "reshape to square", Expected: px * px, Actual: n}
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return mat.NewDense(px, px, data), nil
}

// Project simulates the two sequential acquisitions of a scene: one with the
// Plus patterns, one with the Minus patterns, and their difference.
func Project(plus, minus mat.Matrix, object mat.Matrix) (*Measurement, error) {
	x, err := Flatten(object)
	if err != nil {
		return nil, err
	}
	return ProjectVec(plus, minus, x)
}

// ProjectVec is Project for an already flattened object.
func ProjectVec(plus, minus mat.Matrix, x mat.Vector) (*Measurement, error) {
	pr, pc := plus.Dims()
	mr, mc := minus.Dims()
	if pr != mr || pc != mc {
		return nil, &DimensionMismatchError{Op: "pattern sets", Expected: pr * pc, Actual: mr * mc}
	}
	if x.Len() != pc {
		return nil, &DimensionMismatchError{Op: "object length", Expected: pc, Actual: x.Len()}
	}

	m := &Measurement{
		Plus:  mat.NewVecDense(pr, nil),
		Minus: mat.NewVecDense(pr, nil),
		Diff:  mat.NewVecDense(pr, nil),
	}
	m.Plus.MulVec(plus, x)
	m.Minus.MulVec(minus, x)
	m.Diff.SubVec(m.Plus, m.Minus)
	return m, nil
}

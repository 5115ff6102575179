package spi

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Reconstructor recovers scenes from measurements taken with one sensing
// matrix. The LU factorization is computed once; Recover only reads it and can
// be called from several goroutines.
type Reconstructor struct {
	n  int
	lu mat.LU
}

// NewReconstructor factorizes h. It fails with SingularMatrixError when h is
// singular or too ill-conditioned for a direct solve.
func NewReconstructor(h mat.Matrix) (*Reconstructor, error) {
	r, c := h.Dims()
	if r != c {
		return nil, &InvalidOrderError{Order: r}
	}
	rec := &Reconstructor{n: r}
	rec.lu.Factorize(h)
	if cond := rec.lu.Cond(); math.IsInf(cond, 1) || math.IsNaN(cond) || cond > mat.ConditionTolerance {
		return nil, &SingularMatrixError{Cond: cond}
	}
	return rec, nil
}

// Recover solves H·x = m and reshapes x to px×px.
func (r *Reconstructor) Recover(m mat.Vector) (*mat.Dense, error) {
	if m.Len() != r.n {
		return nil, &DimensionMismatchError{Op: "measurement length", Expected: r.n, Actual: m.Len()}
	}

	x := mat.NewVecDense(r.n, nil)
	if err := r.lu.SolveVecTo(x, false, m); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return nil, &SingularMatrixError{Cond: float64(cond)}
		}
		return nil, err
	}
	return Reshape(x)
}

// Recover is the one-shot form of NewReconstructor followed by Recover.
func Recover(h mat.Matrix, m mat.Vector) (*mat.Dense, error) {
	rec, err := NewReconstructor(h)
	if err != nil {
		return nil, err
	}
	return rec.Recover(m)
}

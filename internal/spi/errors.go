package spi

import "fmt"

// Sentinels for errors.Is checks. The concrete types below carry the context.
var (
	ErrInvalidOrder      = &InvalidOrderError{}
	ErrDimensionMismatch = &DimensionMismatchError{}
	ErrNonPositiveSignal = &NonPositiveSignalError{}
	ErrSingularMatrix    = &SingularMatrixError{}
	ErrInvalidParameter  = &InvalidParameterError{}
)

// InvalidOrderError is returned when a resolution does not yield a supported
// Hadamard order (px² must be a power of two).
type InvalidOrderError struct {
	Resolution int
	Order      int
}

func (e *InvalidOrderError) Error() string {
	if e.Resolution == 0 && e.Order == 0 {
		return "invalid sensing matrix order"
	}
	if e.Order == 0 && e.Resolution > 0 {
		return fmt.Sprintf("invalid sensing matrix order: px=%d is too large", e.Resolution)
	}
	return fmt.Sprintf("invalid sensing matrix order: px=%d gives order %d, want a power of two", e.Resolution, e.Order)
}

func (e *InvalidOrderError) Is(target error) bool {
	_, ok := target.(*InvalidOrderError)
	return ok
}

// DimensionMismatchError reports an object/matrix/vector size disagreement.
type DimensionMismatchError struct {
	Op       string
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	if e.Op == "" {
		return "dimension mismatch"
	}
	return fmt.Sprintf("%s: dimension mismatch (expected %d, got %d)", e.Op, e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Is(target error) bool {
	_, ok := target.(*DimensionMismatchError)
	return ok
}

// NonPositiveSignalError is returned by Noisify when the signal mean is not
// strictly positive, since the calibration takes its logarithm.
type NonPositiveSignalError struct {
	Mean float64
}

func (e *NonPositiveSignalError) Error() string {
	return fmt.Sprintf("signal mean must be positive for SNR calibration, got %g", e.Mean)
}

func (e *NonPositiveSignalError) Is(target error) bool {
	_, ok := target.(*NonPositiveSignalError)
	return ok
}

// SingularMatrixError is returned when the sensing matrix cannot be inverted.
type SingularMatrixError struct {
	Cond float64
}

func (e *SingularMatrixError) Error() string {
	return fmt.Sprintf("sensing matrix is singular or ill-conditioned (cond=%g)", e.Cond)
}

func (e *SingularMatrixError) Is(target error) bool {
	_, ok := target.(*SingularMatrixError)
	return ok
}

// InvalidParameterError represents a rejected noise or calibration setting.
type InvalidParameterError struct {
	Field  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return "invalid parameter: " + e.Field + " " + e.Reason
}

func (e *InvalidParameterError) Is(target error) bool {
	_, ok := target.(*InvalidParameterError)
	return ok
}

package spi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMetrics(t *testing.T) {
	ref := []float64{1, 2, 3, 4}
	est := []float64{1, 0, 3, 5}

	assert.InDelta(t, 0.75, MAE(ref, est), 1e-15)
	assert.InDelta(t, 1.25, MSE(ref, est), 1e-15)
	assert.InDelta(t, 10*math.Log10(16/1.25), PSNR(ref, est, 4), 1e-12)
}

func TestPSNRPerfectEstimate(t *testing.T) {
	ref := []float64{0.1, 0.2}
	assert.True(t, math.IsInf(PSNR(ref, ref, 1), 1))
}

func TestEmpiricalSNR(t *testing.T) {
	noisy := []float64{11, 9, 11, 9}
	noise := []float64{1, -1, 1, -1}
	// mean 10, unbiased variance 4/3
	assert.InDelta(t, 10*math.Log10(10/(4.0/3)), EmpiricalSNR(noisy, noise), 1e-12)
}

func TestClampDB(t *testing.T) {
	assert.Equal(t, 300.0, clampDB(math.Inf(1)))
	assert.Equal(t, -300.0, clampDB(math.Inf(-1)))
	assert.Equal(t, -300.0, clampDB(math.NaN()))
	assert.Equal(t, 42.5, clampDB(42.5))
}

package spi

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/singlepixel/internal/opt"
)

// gridOptimizer evaluates a one-dimensional objective on evenly spaced points.
type gridOptimizer struct {
	points int
}

func (g gridOptimizer) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64, error) {
	best := []float64{lower[0]}
	bestCost := math.Inf(1)
	step := (upper[0] - lower[0]) / float64(g.points-1)
	for i := 0; i < g.points; i++ {
		x := []float64{lower[0] + float64(i)*step}
		if c := eval(x); c < bestCost {
			best, bestCost = x, c
		}
	}
	return best, bestCost, nil
}

var _ opt.Optimizer = gridOptimizer{}

func rampObject(px int) *mat.Dense {
	n := px * px
	object := mat.NewDense(px, px, nil)
	for i := 0; i < n; i++ {
		object.Set(i/px, i%px, float64(i+1)/float64(n))
	}
	return object
}

func TestCalibrateBranchNoiseReachesTarget(t *testing.T) {
	sim, err := NewSimulator(4)
	require.NoError(t, err)

	cfg := CalibrationConfig{TargetPSNR: 10, MaxStd: 20, Trials: 4, Seed: 8}
	var traced int
	trace := func(eval int, std, psnr, objective float64) {
		traced++
		assert.Equal(t, traced, eval)
		assert.InDelta(t, math.Abs(psnr-cfg.TargetPSNR), objective, 1e-12)
	}

	cal, err := CalibrateBranchNoise(context.Background(), sim, rampObject(4), cfg, gridOptimizer{points: 401}, trace)
	require.NoError(t, err)

	assert.InDelta(t, cfg.TargetPSNR, cal.PSNR, 0.5)
	assert.Greater(t, cal.Std, 0.0)
	assert.Less(t, cal.Std, cfg.MaxStd)
	assert.Equal(t, 401, cal.Evaluations)
	assert.Equal(t, 401, traced)
}

func TestCalibrateBranchNoiseWithMayfly(t *testing.T) {
	sim, err := NewSimulator(4)
	require.NoError(t, err)

	cfg := CalibrationConfig{TargetPSNR: 15, MaxStd: 10, Trials: 2, Seed: 3}
	cal, err := CalibrateBranchNoise(context.Background(), sim, rampObject(4), cfg, opt.NewMayfly(30, 20, 42), nil)
	require.NoError(t, err)

	assert.InDelta(t, cfg.TargetPSNR, cal.PSNR, 1.5)
	assert.Positive(t, cal.Evaluations)
}

func TestCalibrateBranchNoiseValidation(t *testing.T) {
	sim, err := NewSimulator(2)
	require.NoError(t, err)
	object := rampObject(2)

	tests := []struct {
		name string
		cfg  CalibrationConfig
	}{
		{"zero max std", CalibrationConfig{TargetPSNR: 10, MaxStd: 0, Trials: 1}},
		{"no trials", CalibrationConfig{TargetPSNR: 10, MaxStd: 1, Trials: 0}},
		{"infinite target", CalibrationConfig{TargetPSNR: math.Inf(1), MaxStd: 1, Trials: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CalibrateBranchNoise(context.Background(), sim, object, tt.cfg, gridOptimizer{points: 3}, nil)
			assert.ErrorIs(t, err, ErrInvalidParameter)
		})
	}

	_, err = CalibrateBranchNoise(context.Background(), sim, rampObject(4), CalibrationConfig{TargetPSNR: 10, MaxStd: 1, Trials: 1}, gridOptimizer{points: 3}, nil)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestCalibrateBranchNoiseCancelled(t *testing.T) {
	sim, err := NewSimulator(2)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = CalibrateBranchNoise(ctx, sim, rampObject(2), CalibrationConfig{TargetPSNR: 10, MaxStd: 1, Trials: 1}, gridOptimizer{points: 5}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

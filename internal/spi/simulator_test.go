package spi

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func randomObject(px int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	object := mat.NewDense(px, px, nil)
	for i := 0; i < px; i++ {
		for j := 0; j < px; j++ {
			object.Set(i, j, rng.Float64())
		}
	}
	return object
}

func TestSimulatorNoNoise(t *testing.T) {
	sim, err := NewSimulator(4)
	require.NoError(t, err)
	object := randomObject(4, 1)

	res, err := sim.Run(object, NoiseConfig{Policy: PolicyNone}, xrand.NewSource(1))
	require.NoError(t, err)

	assert.True(t, mat.EqualApprox(object, res.Clean, 1e-12))
	assert.True(t, mat.Equal(res.Clean, res.Noisy))
	assert.Less(t, res.Metrics.CleanMAE, 1e-12)
	assert.Greater(t, res.Metrics.NoisyPSNR, 200.0)
	assert.Nil(t, res.NoiseOnly)
}

func TestSimulatorBranchMeanOffsetLandsOnFirstPixel(t *testing.T) {
	// With std=0 each branch is shifted by its own mean. The difference of the
	// two means equals the first pixel, and H⁻¹ maps a constant measurement
	// offset onto that pixel alone, so it doubles while the rest is intact.
	sim, err := NewSimulator(2)
	require.NoError(t, err)
	object := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	res, err := sim.Run(object, NoiseConfig{Policy: PolicyBranch, BranchStd: 0}, xrand.NewSource(1))
	require.NoError(t, err)

	want := mat.NewDense(2, 2, []float64{2, 2, 3, 4})
	assert.True(t, mat.EqualApprox(want, res.Noisy, 1e-12), "noisy\n%v", mat.Formatted(res.Noisy))
}

func TestSimulatorBranchNoiseErrorGrowsWithStd(t *testing.T) {
	const trials = 30
	sim, err := NewSimulator(4)
	require.NoError(t, err)
	object := randomObject(4, 11)

	stds := []float64{0.1, 0.5, 1, 2, 4}
	errs := make([]float64, len(stds))
	for k, std := range stds {
		src := xrand.NewSource(77)
		for i := 0; i < trials; i++ {
			res, err := sim.Run(object, NoiseConfig{Policy: PolicyBranch, BranchStd: std}, src)
			require.NoError(t, err)
			errs[k] += res.Metrics.NoisyMAE
		}
		errs[k] /= trials
	}

	for k := 1; k < len(errs); k++ {
		assert.Greater(t, errs[k], errs[k-1], "MAE did not grow from std=%g to std=%g: %v", stds[k-1], stds[k], errs)
	}
}

func TestSimulatorSNRPolicy(t *testing.T) {
	sim, err := NewSimulator(8)
	require.NoError(t, err)
	object := randomObject(8, 3)

	res, err := sim.Run(object, NoiseConfig{Policy: PolicySNR, TargetSNR: 15}, xrand.NewSource(9))
	require.NoError(t, err)

	require.Len(t, res.NoiseOnly, 64)
	assert.Equal(t, 0.0, floats.Min(res.NoiseOnly))
	assert.Greater(t, res.Metrics.SNR, 0.0)
	assert.False(t, mat.EqualApprox(res.Clean, res.Noisy, 1e-9))

	// Scene noise goes in before projection, so the noisy reconstruction is
	// exactly object + noise.
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			assert.InDelta(t, object.At(i, j)+res.NoiseOnly[i*8+j], res.Noisy.At(i, j), 1e-9)
		}
	}
}

func TestSimulatorSeededRunsRepeat(t *testing.T) {
	sim, err := NewSimulator(4)
	require.NoError(t, err)
	object := randomObject(4, 21)
	cfg := NoiseConfig{Policy: PolicyBranch, BranchStd: 1.5}

	a, err := sim.Run(object, cfg, xrand.NewSource(5))
	require.NoError(t, err)
	b, err := sim.Run(object, cfg, xrand.NewSource(5))
	require.NoError(t, err)

	assert.True(t, mat.Equal(a.Noisy, b.Noisy))
	assert.Equal(t, a.Metrics, b.Metrics)
}

func TestSimulatorErrors(t *testing.T) {
	_, err := NewSimulator(3)
	assert.ErrorIs(t, err, ErrInvalidOrder)

	sim, err := NewSimulator(2)
	require.NoError(t, err)

	tests := []struct {
		name   string
		object mat.Matrix
		cfg    NoiseConfig
		want   error
	}{
		{"unknown policy", mat.NewDense(2, 2, nil), NoiseConfig{Policy: "fourier"}, ErrInvalidParameter},
		{"negative std", mat.NewDense(2, 2, nil), NoiseConfig{Policy: PolicyBranch, BranchStd: -1}, ErrInvalidParameter},
		{"dark scene", mat.NewDense(2, 2, nil), NoiseConfig{Policy: PolicySNR, TargetSNR: 10}, ErrNonPositiveSignal},
		{"wrong size", mat.NewDense(4, 4, nil), NoiseConfig{Policy: PolicyNone}, ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.Run(tt.object, tt.cfg, xrand.NewSource(1))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

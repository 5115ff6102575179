package spi

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Metrics summarizes reconstruction quality against the source object.
type Metrics struct {
	CleanMAE  float64 `json:"cleanMae"`
	NoisyMAE  float64 `json:"noisyMae"`
	NoisyMSE  float64 `json:"noisyMse"`
	NoisyPSNR float64 `json:"noisyPsnr"`

	// SNR is the realized signal-to-noise ratio of the SNR policy, 0 otherwise.
	SNR float64 `json:"snr,omitempty"`
}

// MAE is the mean absolute error between two equally sized slices.
func MAE(reference, estimate []float64) float64 {
	diff := make([]float64, len(reference))
	floats.SubTo(diff, estimate, reference)
	for i, d := range diff {
		diff[i] = math.Abs(d)
	}
	return stat.Mean(diff, nil)
}

// MSE is the mean squared error between two equally sized slices.
func MSE(reference, estimate []float64) float64 {
	diff := make([]float64, len(reference))
	floats.SubTo(diff, estimate, reference)
	floats.Mul(diff, diff)
	return stat.Mean(diff, nil)
}

// PSNR is the peak signal-to-noise ratio in dB. A perfect estimate yields +Inf.
func PSNR(reference, estimate []float64, peak float64) float64 {
	mse := MSE(reference, estimate)
	if mse == 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(peak*peak/mse)
}

// EmpiricalSNR measures the SNR in dB of a Noisify result: the mean level of
// the noisy signal over the variance of the noise alone.
func EmpiricalSNR(noisy, noise []float64) float64 {
	return 10 * math.Log10(stat.Mean(noisy, nil)/stat.Variance(noise, nil))
}

func matrixData(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}

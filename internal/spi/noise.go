package spi

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// NoiseInjector draws every noise sample from Src. Two injectors built on
// sources with the same seed produce identical noise.
type NoiseInjector struct {
	Src rand.Source
}

// NewNoiseInjector returns an injector backed by a seeded source.
func NewNoiseInjector(seed uint64) *NoiseInjector {
	return &NoiseInjector{Src: rand.NewSource(seed)}
}

// AddBranchNoise perturbs each branch of m independently with Gaussian noise of
// standard deviation std, centred on that branch's own mean, and recomputes the
// difference. The input measurement is left untouched.
//
// Because the noise is not zero-mean, Diff gains mean(Plus)-mean(Minus) in
// every entry, which reconstructs as a bias on pixel (0,0) alone.
func (n *NoiseInjector) AddBranchNoise(m *Measurement, std float64) (*Measurement, error) {
	if std < 0 || math.IsNaN(std) {
		return nil, &InvalidParameterError{Field: "std", Reason: "must be non-negative"}
	}
	if m.Plus.Len() != m.Minus.Len() {
		return nil, &DimensionMismatchError{Op: "branch lengths", Expected: m.Plus.Len(), Actual: m.Minus.Len()}
	}

	plus := n.branch(m.Plus, std)
	minus := n.branch(m.Minus, std)
	diff := mat.NewVecDense(plus.Len(), nil)
	diff.SubVec(plus, minus)

	return &Measurement{Plus: plus, Minus: minus, Diff: diff}, nil
}

func (n *NoiseInjector) branch(v *mat.VecDense, std float64) *mat.VecDense {
	values := vecData(v)
	dist := distuv.Normal{Mu: stat.Mean(values, nil), Sigma: std, Src: n.Src}

	out := make([]float64, len(values))
	for i, x := range values {
		out[i] = x + dist.Rand()
	}
	return mat.NewVecDense(len(out), out)
}

// Noisify adds non-negative Gaussian noise to signal so that the noise level
// sits targetSNR decibels below the signal mean. The draw is zero-mean with
// variance 10^((10·log10(mean) - targetSNR)/10); the whole vector is then
// shifted up by |min| so no sample is negative. The shift leaves the variance
// alone but raises the mean, so the realized SNR lands slightly above target.
func (n *NoiseInjector) Noisify(signal []float64, targetSNR float64) (noisy, noise []float64, err error) {
	avg := stat.Mean(signal, nil)
	if !(avg > 0) {
		return nil, nil, &NonPositiveSignalError{Mean: avg}
	}
	if math.IsNaN(targetSNR) || math.IsInf(targetSNR, 0) {
		return nil, nil, &InvalidParameterError{Field: "targetSNR", Reason: "must be finite"}
	}

	avgDB := 10 * math.Log10(avg)
	noiseAvg := math.Pow(10, (avgDB-targetSNR)/10)
	dist := distuv.Normal{Mu: 0, Sigma: math.Sqrt(noiseAvg), Src: n.Src}

	noise = make([]float64, len(signal))
	for i := range noise {
		noise[i] = dist.Rand()
	}
	floats.AddConst(math.Abs(floats.Min(noise)), noise)

	noisy = make([]float64, len(signal))
	floats.AddTo(noisy, signal, noise)
	return noisy, noise, nil
}

func vecData(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

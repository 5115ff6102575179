package spi

import (
	"log/slog"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// NoisePolicy selects which noise model a run applies.
type NoisePolicy string

const (
	PolicyNone   NoisePolicy = "none"
	PolicyBranch NoisePolicy = "branch" // detector noise on each acquisition branch
	PolicySNR    NoisePolicy = "snr"    // scene noise calibrated to a target SNR
)

// NoiseConfig is the noise part of a simulation run. Only the field that
// belongs to Policy is read.
type NoiseConfig struct {
	Policy    NoisePolicy `json:"policy"`
	BranchStd float64     `json:"branchStd,omitempty"`
	TargetSNR float64     `json:"targetSnr,omitempty"`
}

// Validate checks the policy and its parameter.
func (c NoiseConfig) Validate() error {
	switch c.Policy {
	case PolicyNone, PolicySNR:
		return nil
	case PolicyBranch:
		if c.BranchStd < 0 {
			return &InvalidParameterError{Field: "BranchStd", Reason: "must be non-negative"}
		}
		return nil
	default:
		return &InvalidParameterError{Field: "Policy", Reason: "unknown policy " + string(c.Policy)}
	}
}

// Result holds both reconstructions of a run and what produced them.
type Result struct {
	Clean *mat.Dense
	Noisy *mat.Dense

	Measurement      *Measurement
	NoisyMeasurement *Measurement

	// NoiseOnly is the scene noise drawn by the SNR policy.
	NoiseOnly []float64

	Metrics Metrics
}

// Simulator owns the basis and its factorization for one resolution, so the
// clean and noisy branches of every run see exactly the same sensing matrix.
type Simulator struct {
	basis *Basis
	rec   *Reconstructor
}

// NewSimulator builds the basis for px and factorizes it.
func NewSimulator(px int) (*Simulator, error) {
	basis, err := BuildBasis(px)
	if err != nil {
		return nil, err
	}
	rec, err := NewReconstructor(basis.H)
	if err != nil {
		return nil, err
	}
	slog.Debug("Sensing basis ready", "px", px, "order", basis.Order)
	return &Simulator{basis: basis, rec: rec}, nil
}

// Basis returns the simulator's sensing basis.
func (s *Simulator) Basis() *Basis {
	return s.basis
}

// Run acquires object without and with noise and reconstructs both. All
// randomness comes from src.
func (s *Simulator) Run(object mat.Matrix, cfg NoiseConfig, src rand.Source) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	x, err := Flatten(object)
	if err != nil {
		return nil, err
	}
	clean, err := ProjectVec(s.basis.Plus, s.basis.Minus, x)
	if err != nil {
		return nil, err
	}
	cleanImg, err := s.rec.Recover(clean.Diff)
	if err != nil {
		return nil, err
	}

	res := &Result{Clean: cleanImg, Measurement: clean}
	injector := &NoiseInjector{Src: src}

	switch cfg.Policy {
	case PolicyNone:
		res.NoisyMeasurement = clean
	case PolicyBranch:
		res.NoisyMeasurement, err = injector.AddBranchNoise(clean, cfg.BranchStd)
	case PolicySNR:
		var noisy []float64
		noisy, res.NoiseOnly, err = injector.Noisify(vecData(x), cfg.TargetSNR)
		if err == nil {
			res.NoisyMeasurement, err = ProjectVec(s.basis.Plus, s.basis.Minus, mat.NewVecDense(len(noisy), noisy))
			res.Metrics.SNR = clampDB(EmpiricalSNR(noisy, res.NoiseOnly))
		}
	}
	if err != nil {
		return nil, err
	}

	res.Noisy, err = s.rec.Recover(res.NoisyMeasurement.Diff)
	if err != nil {
		return nil, err
	}

	ref := vecData(x)
	cleanData := matrixData(res.Clean)
	noisyData := matrixData(res.Noisy)
	peak := floats.Max(ref)
	res.Metrics.CleanMAE = MAE(ref, cleanData)
	res.Metrics.NoisyMAE = MAE(ref, noisyData)
	res.Metrics.NoisyMSE = MSE(ref, noisyData)
	res.Metrics.NoisyPSNR = clampDB(PSNR(ref, noisyData, peak))

	slog.Debug("Simulation complete",
		"px", s.basis.Resolution,
		"policy", cfg.Policy,
		"clean_mae", res.Metrics.CleanMAE,
		"noisy_mae", res.Metrics.NoisyMAE,
		"noisy_psnr", res.Metrics.NoisyPSNR,
	)

	return res, nil
}

// clampDB keeps decibel metrics finite so they survive JSON encoding. 300 dB is past
// what float64 round-off can resolve.
func clampDB(v float64) float64 {
	const ceiling = 300.0
	switch {
	case math.IsNaN(v) || math.IsInf(v, -1):
		return -ceiling
	case v > ceiling:
		return ceiling
	}
	return v
}

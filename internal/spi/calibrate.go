package spi

import (
	"context"
	"log/slog"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/singlepixel/internal/opt"
)

// CalibrationConfig describes a branch-noise calibration: find the detector
// std whose noisy reconstruction of an object reaches TargetPSNR.
type CalibrationConfig struct {
	TargetPSNR float64 `json:"targetPsnr"`
	MaxStd     float64 `json:"maxStd"`
	Trials     int     `json:"trials"`
	Seed       uint64  `json:"seed"`
}

// Validate checks the search interval and trial count.
func (c CalibrationConfig) Validate() error {
	if !(c.MaxStd > 0) {
		return &InvalidParameterError{Field: "MaxStd", Reason: "must be positive"}
	}
	if c.Trials <= 0 {
		return &InvalidParameterError{Field: "Trials", Reason: "must be positive"}
	}
	if math.IsNaN(c.TargetPSNR) || math.IsInf(c.TargetPSNR, 0) {
		return &InvalidParameterError{Field: "TargetPSNR", Reason: "must be finite"}
	}
	return nil
}

// Calibration is the outcome of CalibrateBranchNoise.
type Calibration struct {
	Std         float64 `json:"std"`
	PSNR        float64 `json:"psnr"`
	Objective   float64 `json:"objective"`
	Evaluations int     `json:"evaluations"`
}

// TraceFunc observes every objective evaluation of a calibration.
type TraceFunc func(eval int, std, psnr, objective float64)

// CalibrateBranchNoise searches [0, MaxStd] for the branch-noise std that
// brings the mean noisy PSNR over Trials runs closest to TargetPSNR. Each
// evaluation replays the same seeded noise stream, so the objective is a
// deterministic function of std.
func CalibrateBranchNoise(ctx context.Context, sim *Simulator, object mat.Matrix, cfg CalibrationConfig, optimizer opt.Optimizer, trace TraceFunc) (*Calibration, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Surface dimension problems before the optimizer swallows them.
	if _, err := sim.Run(object, NoiseConfig{Policy: PolicyNone}, rand.NewSource(cfg.Seed)); err != nil {
		return nil, err
	}

	evals := 0
	eval := func(params []float64) float64 {
		if ctx.Err() != nil {
			return math.MaxFloat64
		}
		std := math.Max(0, params[0])
		psnr, err := meanNoisyPSNR(sim, object, std, cfg)
		evals++
		if err != nil {
			slog.Warn("Calibration evaluation failed", "std", std, "error", err)
			return math.MaxFloat64
		}
		objective := math.Abs(psnr - cfg.TargetPSNR)
		if trace != nil {
			trace(evals, std, psnr, objective)
		}
		return objective
	}

	best, objective, err := optimizer.Run(eval, []float64{0}, []float64{cfg.MaxStd}, 1)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	std := math.Max(0, best[0])
	psnr, err := meanNoisyPSNR(sim, object, std, cfg)
	if err != nil {
		return nil, err
	}

	slog.Info("Calibration complete", "std", std, "psnr", psnr, "target_psnr", cfg.TargetPSNR, "evaluations", evals)

	return &Calibration{
		Std:         std,
		PSNR:        psnr,
		Objective:   objective,
		Evaluations: evals,
	}, nil
}

func meanNoisyPSNR(sim *Simulator, object mat.Matrix, std float64, cfg CalibrationConfig) (float64, error) {
	src := rand.NewSource(cfg.Seed)
	var sum float64
	for i := 0; i < cfg.Trials; i++ {
		res, err := sim.Run(object, NoiseConfig{Policy: PolicyBranch, BranchStd: std}, src)
		if err != nil {
			return 0, err
		}
		sum += res.Metrics.NoisyPSNR
	}
	return sum / float64(cfg.Trials), nil
}

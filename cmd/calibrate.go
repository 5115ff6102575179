package main

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"github.com/cwbudde/singlepixel/internal/imageio"
	"github.com/cwbudde/singlepixel/internal/opt"
	"github.com/cwbudde/singlepixel/internal/spi"
	"github.com/cwbudde/singlepixel/internal/store"
)

var (
	calRefPath    string
	calPx         int
	calScale      string
	calTargetPSNR float64
	calMaxStd     float64
	calTrials     int
	calIters      int
	calPopSize    int
	calSeed       uint64
	calDataDir    string
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Find the detector noise std that yields a target PSNR",
	Long: `Searches [0, max-std] with the mayfly optimizer for the branch-noise std
whose noisy reconstruction of the reference reaches --target-psnr, averaged
over --trials seeded runs. Every evaluation is appended to the run's
trace.jsonl and the final run record is stored in --data-dir.`,
	RunE: runCalibrate,
}

func init() {
	calibrateCmd.Flags().StringVar(&calRefPath, "ref", "", "Reference image path (required)")
	calibrateCmd.Flags().IntVar(&calPx, "px", 16, "Object resolution (px*px must be a power of two)")
	calibrateCmd.Flags().StringVar(&calScale, "scale", "unit", "Intensity scale: unit [0,1] or byte [0,255]")
	calibrateCmd.Flags().Float64Var(&calTargetPSNR, "target-psnr", 25, "Target PSNR in dB")
	calibrateCmd.Flags().Float64Var(&calMaxStd, "max-std", 10, "Upper bound of the std search interval")
	calibrateCmd.Flags().IntVar(&calTrials, "trials", 3, "Simulations averaged per evaluation")
	calibrateCmd.Flags().IntVar(&calIters, "iters", 30, "Max optimizer iterations")
	calibrateCmd.Flags().IntVar(&calPopSize, "pop", opt.MinPopulation, "Optimizer population size")
	calibrateCmd.Flags().Uint64Var(&calSeed, "seed", 42, "Random seed")
	calibrateCmd.Flags().StringVar(&calDataDir, "data-dir", "./data", "Base directory for stored runs")

	calibrateCmd.MarkFlagRequired("ref")
	rootCmd.AddCommand(calibrateCmd)
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	cfg := spi.CalibrationConfig{
		TargetPSNR: calTargetPSNR,
		MaxStd:     calMaxStd,
		Trials:     calTrials,
		Seed:       calSeed,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	warnLargeResolution(calPx)

	object, err := imageio.Load(calRefPath, calPx, imageio.Scale(calScale))
	if err != nil {
		return err
	}
	sim, err := spi.NewSimulator(calPx)
	if err != nil {
		return err
	}

	runStore, err := store.NewFSStore(calDataDir)
	if err != nil {
		return err
	}
	runID := uuid.New().String()

	trace, err := store.NewTraceWriter(runStore.BaseDir(), runID, false)
	if err != nil {
		return err
	}
	defer trace.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting calibration",
		"run_id", runID,
		"px", calPx,
		"target_psnr", calTargetPSNR,
		"max_std", calMaxStd,
		"trials", calTrials,
	)

	start := time.Now()
	optimizer := opt.NewMayfly(calIters, calPopSize, int64(calSeed))
	cal, err := spi.CalibrateBranchNoise(ctx, sim, object, cfg, optimizer, func(eval int, std, psnr, objective float64) {
		entry := store.TraceEntry{
			Evaluation: eval,
			Std:        std,
			PSNR:       psnr,
			Objective:  objective,
			Timestamp:  time.Now(),
		}
		if err := trace.Write(entry); err != nil {
			slog.Warn("Failed to write trace entry", "run_id", runID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("calibration failed: %w", err)
	}
	elapsed := time.Since(start)

	if err := trace.Flush(); err != nil {
		slog.Warn("Failed to flush trace", "run_id", runID, "error", err)
	}

	// One representative run at the calibrated std for the stored images.
	noise := spi.NoiseConfig{Policy: spi.PolicyBranch, BranchStd: cal.Std}
	result, err := sim.Run(object, noise, rand.NewSource(calSeed))
	if err != nil {
		return err
	}

	config := store.RunConfig{
		RefPath:    calRefPath,
		Resolution: calPx,
		Scale:      calScale,
		Seed:       calSeed,
		Noise:      noise,
		Calibrate:  &cfg,
	}
	images := map[string]image.Image{
		"object": imageio.Heatmap(object),
		"clean":  imageio.Heatmap(result.Clean),
		"noisy":  imageio.Heatmap(result.Noisy),
	}
	if _, err := saveRunTo(runStore, runID, store.KindCalibration, config, result.Metrics, cal, images, elapsed); err != nil {
		return err
	}

	fmt.Printf("Calibrated std %.4f (mean PSNR %.2f dB, target %.2f dB, %d evaluations, %s)\n",
		cal.Std, cal.PSNR, calTargetPSNR, cal.Evaluations, elapsed.Round(time.Millisecond))
	fmt.Printf("Saved run %s\n", runID)
	return nil
}

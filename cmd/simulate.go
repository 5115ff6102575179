package main

import (
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"github.com/cwbudde/singlepixel/internal/imageio"
	"github.com/cwbudde/singlepixel/internal/spi"
	"github.com/cwbudde/singlepixel/internal/store"
)

// largeResolution is where the dense n×n basis starts to cost real memory.
const largeResolution = 64

var (
	refPath    string
	px         int
	noiseMode  string
	branchStd  float64
	targetSNR  float64
	seed       uint64
	randomSeed bool
	scale      string
	outDir     string
	dataDir    string
	saveRun    bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate an acquisition and reconstruct it",
	Long: `Loads a reference image as a px×px object, acquires it with the Hadamard
basis, reconstructs a clean and a noisy image and writes both as heatmaps
together with the object (object.png, clean.png, noisy.png).`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&refPath, "ref", "", "Reference image path (required)")
	simulateCmd.Flags().IntVar(&px, "px", 32, "Object resolution (px*px must be a power of two)")
	simulateCmd.Flags().StringVar(&noiseMode, "noise", "branch", "Noise policy: none, branch, snr")
	simulateCmd.Flags().Float64Var(&branchStd, "std", 2, "Detector noise std for the branch policy")
	simulateCmd.Flags().Float64Var(&targetSNR, "snr", 20, "Target SNR in dB for the snr policy")
	simulateCmd.Flags().Uint64Var(&seed, "seed", 42, "Random seed")
	simulateCmd.Flags().BoolVar(&randomSeed, "random-seed", false, "Draw the seed from the clock (recorded in the run)")
	simulateCmd.Flags().StringVar(&scale, "scale", "unit", "Intensity scale: unit [0,1] or byte [0,255]")
	simulateCmd.Flags().StringVar(&outDir, "out-dir", ".", "Directory for output images")
	simulateCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Base directory for stored runs")
	simulateCmd.Flags().BoolVar(&saveRun, "save", false, "Persist the run record and images to --data-dir")

	simulateCmd.MarkFlagRequired("ref")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if randomSeed {
		seed = uint64(time.Now().UnixNano())
	}
	warnLargeResolution(px)

	noise := spi.NoiseConfig{Policy: spi.NoisePolicy(noiseMode), BranchStd: branchStd, TargetSNR: targetSNR}
	if err := noise.Validate(); err != nil {
		return err
	}

	slog.Info("Starting simulation", "ref", refPath, "px", px, "policy", noise.Policy, "seed", seed)

	object, err := imageio.Load(refPath, px, imageio.Scale(scale))
	if err != nil {
		return err
	}

	start := time.Now()
	sim, err := spi.NewSimulator(px)
	if err != nil {
		return err
	}
	slog.Info("Sensing basis ready", "px", px, "order", sim.Basis().Order, "elapsed", time.Since(start))

	result, err := sim.Run(object, noise, rand.NewSource(seed))
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}
	elapsed := time.Since(start)

	images := map[string]image.Image{
		"object": imageio.Heatmap(object),
		"clean":  imageio.Heatmap(result.Clean),
		"noisy":  imageio.Heatmap(result.Noisy),
	}
	for name, img := range images {
		if err := imageio.SavePNG(filepath.Join(outDir, name+".png"), img); err != nil {
			return err
		}
	}

	slog.Info("Simulation complete",
		"elapsed", elapsed,
		"clean_mae", result.Metrics.CleanMAE,
		"noisy_mae", result.Metrics.NoisyMAE,
		"noisy_psnr", result.Metrics.NoisyPSNR,
	)

	if saveRun {
		config := store.RunConfig{
			RefPath:    refPath,
			Resolution: px,
			Scale:      scale,
			Seed:       seed,
			Noise:      noise,
		}
		id, err := persistRun(dataDir, store.KindSimulation, config, result.Metrics, nil, images, elapsed)
		if err != nil {
			return err
		}
		fmt.Printf("Saved run %s\n", id)
	}

	fmt.Printf("Wrote %s (clean MAE %.3g, noisy MAE %.3g, noisy PSNR %.2f dB)\n",
		outDir, result.Metrics.CleanMAE, result.Metrics.NoisyMAE, result.Metrics.NoisyPSNR)
	if noise.Policy == spi.PolicySNR {
		fmt.Printf("Realized SNR: %.2f dB (target %.2f dB)\n", result.Metrics.SNR, noise.TargetSNR)
	}
	return nil
}

func warnLargeResolution(px int) {
	if px > largeResolution {
		n := px * px
		slog.Warn("Large resolution, the dense basis may exhaust memory",
			"px", px, "order", n, "basis_mb", 3*n*n*8/(1<<20))
	}
}

// persistRun stores a run record with its images and returns the new run ID.
func persistRun(dir string, kind store.RunKind, config store.RunConfig, metrics spi.Metrics, cal *spi.Calibration, images map[string]image.Image, elapsed time.Duration) (string, error) {
	runStore, err := store.NewFSStore(dir)
	if err != nil {
		return "", err
	}
	return saveRunTo(runStore, uuid.New().String(), kind, config, metrics, cal, images, elapsed)
}

func saveRunTo(runStore store.Store, id string, kind store.RunKind, config store.RunConfig, metrics spi.Metrics, cal *spi.Calibration, images map[string]image.Image, elapsed time.Duration) (string, error) {
	run := store.NewRun(id, kind, config)
	run.Metrics = metrics
	run.Calibration = cal
	run.ElapsedSeconds = elapsed.Seconds()

	if err := runStore.SaveRun(run); err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}
	for name, img := range images {
		if err := runStore.SaveImage(id, name, img); err != nil {
			return "", fmt.Errorf("failed to save %s image: %w", name, err)
		}
	}
	slog.Info("Run saved", "run_id", id, "kind", kind)
	return id, nil
}

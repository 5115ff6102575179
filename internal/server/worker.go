package server

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"golang.org/x/exp/rand"

	"github.com/cwbudde/singlepixel/internal/imageio"
	"github.com/cwbudde/singlepixel/internal/spi"
	"github.com/cwbudde/singlepixel/internal/store"
)

// Artifact names shared by the job API and the run store.
const (
	ImageObject = "object"
	ImageClean  = "clean"
	ImageNoisy  = "noisy"
)

// runJob executes a simulation job in the background.
// If runStore is not nil the completed run and its images are persisted under the job ID.
func runJob(ctx context.Context, jm *JobManager, sims *simulatorCache, runStore store.Store, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}

	cfg := job.Config
	slog.Info("Starting job", "job_id", jobID, "ref", cfg.RefPath, "px", cfg.Resolution, "policy", cfg.Policy)

	object, err := imageio.Load(cfg.RefPath, cfg.Resolution, cfg.Scale)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	sim, err := sims.get(cfg.Resolution)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	// Check for cancellation before starting expensive operation
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	start := time.Now()
	result, err := sim.Run(object, cfg.Noise(), rand.NewSource(cfg.Seed))
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	elapsed := time.Since(start)

	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	images := map[string]image.Image{
		ImageObject: imageio.Heatmap(object),
		ImageClean:  imageio.Heatmap(result.Clean),
		ImageNoisy:  imageio.Heatmap(result.Noisy),
	}

	if runStore != nil {
		if err := persistRun(runStore, job, result.Metrics, images, elapsed); err != nil {
			// The in-memory result is still served.
			slog.Warn("Failed to persist run", "job_id", jobID, "error", err)
		}
	}

	metrics := result.Metrics
	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Metrics = &metrics
		j.images = images
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"clean_mae", metrics.CleanMAE,
		"noisy_mae", metrics.NoisyMAE,
		"noisy_psnr", metrics.NoisyPSNR,
	)
	return nil
}

// persistRun saves the run record and its images.
func persistRun(runStore store.Store, job Job, metrics spi.Metrics, images map[string]image.Image, elapsed time.Duration) error {
	run := store.NewRun(job.ID, store.KindSimulation, store.RunConfig{
		RefPath:    job.Config.RefPath,
		Resolution: job.Config.Resolution,
		Scale:      string(job.Config.Scale),
		Seed:       job.Config.Seed,
		Noise:      job.Config.Noise(),
	})
	run.Metrics = metrics
	run.ElapsedSeconds = elapsed.Seconds()

	if err := runStore.SaveRun(run); err != nil {
		return err
	}
	for name, img := range images {
		if err := runStore.SaveImage(job.ID, name, img); err != nil {
			return fmt.Errorf("failed to save %s image: %w", name, err)
		}
	}
	slog.Debug("Run persisted", "job_id", job.ID)
	return nil
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)
}

package server

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/singlepixel/internal/imageio"
	"github.com/cwbudde/singlepixel/internal/spi"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// MaxResolution bounds jobs accepted over HTTP. The basis needs three dense
// px²×px² matrices, so px=64 already costs ~400 MB.
const MaxResolution = 64

// JobConfig is the request body of POST /api/v1/jobs.
type JobConfig struct {
	RefPath    string          `json:"refPath"`
	Resolution int             `json:"resolution"`
	Scale      imageio.Scale   `json:"scale"`
	Policy     spi.NoisePolicy `json:"policy"`
	BranchStd  float64         `json:"branchStd"`
	TargetSNR  float64         `json:"targetSnr"`
	Seed       uint64          `json:"seed"`
}

// DefaultJobConfig returns the settings a request starts from. Request
// bodies are decoded over it, so only fields the client omits keep these
// values and an explicit zero is preserved.
func DefaultJobConfig() JobConfig {
	return JobConfig{
		Resolution: 32,
		Scale:      imageio.ScaleUnit,
		Policy:     spi.PolicyBranch,
		BranchStd:  2,
		TargetSNR:  20,
	}
}

// Validate rejects configurations that cannot run.
func (c JobConfig) Validate() error {
	if c.RefPath == "" {
		return fmt.Errorf("refPath is required")
	}
	if err := spi.CheckResolution(c.Resolution); err != nil {
		return err
	}
	if c.Resolution > MaxResolution {
		return fmt.Errorf("resolution %d exceeds server limit %d", c.Resolution, MaxResolution)
	}
	if c.Scale != imageio.ScaleUnit && c.Scale != imageio.ScaleByte {
		return fmt.Errorf("unknown scale: %s", c.Scale)
	}
	return c.Noise().Validate()
}

// Noise extracts the simulator's noise settings, keeping only the parameter
// the policy reads.
func (c JobConfig) Noise() spi.NoiseConfig {
	noise := spi.NoiseConfig{Policy: c.Policy}
	switch c.Policy {
	case spi.PolicyBranch:
		noise.BranchStd = c.BranchStd
	case spi.PolicySNR:
		noise.TargetSNR = c.TargetSNR
	}
	return noise
}

// Job is a simulation requested over HTTP.
type Job struct {
	ID        string       `json:"id"`
	State     JobState     `json:"state"`
	Config    JobConfig    `json:"config"`
	Metrics   *spi.Metrics `json:"metrics,omitempty"`
	StartTime time.Time    `json:"startTime"`
	EndTime   *time.Time   `json:"endTime,omitempty"`
	Error     string       `json:"error,omitempty"`

	// Rendered artifacts, set once the job completes.
	images map[string]image.Image
}

// JobManager manages the lifecycle of jobs
type JobManager struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*Job),
	}
}

// CreateJob registers a pending job and returns a snapshot of it.
func (jm *JobManager) CreateJob(config JobConfig) Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Config:    config,
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	return *job
}

// GetJob returns a snapshot of the job with the given ID.
func (jm *JobManager) GetJob(id string) (Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return Job{}, false
	}
	return *job, true
}

// Image returns a rendered artifact of a completed job.
func (jm *JobManager) Image(id, name string) (image.Image, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists || job.images == nil {
		return nil, false
	}
	img, ok := job.images[name]
	return img, ok
}

// ListJobs returns snapshots of all jobs, oldest first.
func (jm *JobManager) ListJobs() []Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, *job)
	}
	sortJobs(jobs)
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

package store

import (
	"time"

	"github.com/cwbudde/singlepixel/internal/spi"
)

// RunKind distinguishes plain simulations from calibration searches.
type RunKind string

const (
	KindSimulation  RunKind = "simulation"
	KindCalibration RunKind = "calibration"
)

// RunConfig records everything needed to repeat a run.
type RunConfig struct {
	RefPath    string                 `json:"refPath"`
	Resolution int                    `json:"resolution"`
	Scale      string                 `json:"scale"` // unit or byte
	Seed       uint64                 `json:"seed"`
	Noise      spi.NoiseConfig        `json:"noise"`
	Calibrate  *spi.CalibrationConfig `json:"calibrate,omitempty"`
}

// Run is a persisted simulation outcome. Reconstructions themselves are
// stored as PNG artifacts next to the record, not in it.
type Run struct {
	ID        string    `json:"id"`
	Kind      RunKind   `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Config    RunConfig `json:"config"`

	Metrics     spi.Metrics      `json:"metrics"`
	Calibration *spi.Calibration `json:"calibration,omitempty"`

	// ElapsedSeconds is the wall time of the simulation or search.
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}

// RunInfo is the listing view of a run.
type RunInfo struct {
	ID         string          `json:"id"`
	Kind       RunKind         `json:"kind"`
	Timestamp  time.Time       `json:"timestamp"`
	RefPath    string          `json:"refPath"`
	Resolution int             `json:"resolution"`
	Policy     spi.NoisePolicy `json:"policy"`
	NoisyPSNR  float64         `json:"noisyPsnr"`
}

// NewRun creates a run record stamped with the current time.
func NewRun(id string, kind RunKind, config RunConfig) *Run {
	return &Run{
		ID:        id,
		Kind:      kind,
		Timestamp: time.Now(),
		Config:    config,
	}
}

// ToInfo converts a full Run to RunInfo.
func (r *Run) ToInfo() RunInfo {
	return RunInfo{
		ID:         r.ID,
		Kind:       r.Kind,
		Timestamp:  r.Timestamp,
		RefPath:    r.Config.RefPath,
		Resolution: r.Config.Resolution,
		Policy:     r.Config.Noise.Policy,
		NoisyPSNR:  r.Metrics.NoisyPSNR,
	}
}

// Validate checks that the record is complete enough to be listed and replayed.
func (r *Run) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if !validName(r.ID) {
		return &ValidationError{Field: "ID", Reason: "must not contain path separators"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if r.Config.RefPath == "" {
		return &ValidationError{Field: "Config.RefPath", Reason: "cannot be empty"}
	}
	if r.Config.Resolution <= 0 {
		return &ValidationError{Field: "Config.Resolution", Reason: "must be positive"}
	}
	if err := r.Config.Noise.Validate(); err != nil {
		return &ValidationError{Field: "Config.Noise", Reason: err.Error()}
	}
	if r.ElapsedSeconds < 0 {
		return &ValidationError{Field: "ElapsedSeconds", Reason: "cannot be negative"}
	}

	switch r.Kind {
	case KindSimulation:
	case KindCalibration:
		if r.Config.Calibrate == nil {
			return &ValidationError{Field: "Config.Calibrate", Reason: "required for calibration runs"}
		}
		if r.Calibration == nil {
			return &ValidationError{Field: "Calibration", Reason: "required for calibration runs"}
		}
	default:
		return &ValidationError{Field: "Kind", Reason: "unknown kind " + string(r.Kind)}
	}
	return nil
}

// ValidationError represents a run validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

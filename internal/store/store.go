package store

import "image"

// Store persists simulation and calibration runs.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return ErrNotFound if a run or artifact doesn't exist (for Load/Delete/ImagePath)
//   - Return *ValidationError for records that fail Run.Validate
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveRun atomically writes the run record, overwriting any previous
	// record with the same ID.
	SaveRun(run *Run) error

	// LoadRun retrieves the run record for the given ID.
	LoadRun(id string) (*Run, error)

	// ListRuns returns metadata for all stored runs, newest first.
	ListRuns() ([]RunInfo, error)

	// DeleteRun removes the run record and all its artifacts (images, trace).
	DeleteRun(id string) error

	// SaveImage stores a PNG artifact named name (without extension) for a run.
	SaveImage(id, name string, img image.Image) error

	// ImagePath returns the filesystem path of a stored artifact.
	ImagePath(id, name string) (string, error)
}

// ErrNotFound is returned when a requested run or artifact does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run not found: " + e.RunID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

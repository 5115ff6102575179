package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSStore implements Store on the filesystem. Each run lives in
// <baseDir>/runs/<id>/ with run.json, PNG artifacts and an optional trace.jsonl.
//
// Writes go through a temp file and rename, so concurrent readers never see a
// partial file and no locks are needed.
type FSStore struct {
	baseDir string
}

// NewFSStore creates a filesystem store rooted at baseDir, creating it if needed.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSStore{
		baseDir: baseDir,
	}, nil
}

// BaseDir returns the root directory of the store.
func (fs *FSStore) BaseDir() string {
	return fs.baseDir
}

func (fs *FSStore) runDir(id string) string {
	return runDir(fs.baseDir, id)
}

func (fs *FSStore) recordPath(id string) string {
	return filepath.Join(fs.runDir(id), "run.json")
}

func runDir(baseDir, id string) string {
	return filepath.Join(baseDir, "runs", id)
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// SaveRun validates and atomically writes the run record.
func (fs *FSStore) SaveRun(run *Run) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}
	if err := run.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize run: %w", err)
	}

	path := fs.recordPath(run.ID)
	if err := writeAtomic(path, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	}); err != nil {
		return err
	}

	slog.Debug("Run saved", "runID", run.ID, "path", path)
	return nil
}

// LoadRun reads the run record for id.
func (fs *FSStore) LoadRun(id string) (*Run, error) {
	if !validName(id) {
		return nil, fmt.Errorf("invalid run id %q", id)
	}

	data, err := os.ReadFile(fs.recordPath(id))
	if os.IsNotExist(err) {
		return nil, &NotFoundError{RunID: id}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to deserialize run: %w", err)
	}
	return &run, nil
}

// ListRuns returns metadata for all readable runs, newest first. Directories
// without a record and corrupted records are skipped.
func (fs *FSStore) ListRuns() ([]RunInfo, error) {
	entries, err := os.ReadDir(filepath.Join(fs.baseDir, "runs"))
	if os.IsNotExist(err) {
		return []RunInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	infos := []RunInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		run, err := fs.LoadRun(entry.Name())
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				slog.Warn("Failed to load run for listing", "runID", entry.Name(), "error", err)
			}
			continue
		}
		infos = append(infos, run.ToInfo())
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp.After(infos[j].Timestamp)
	})

	slog.Debug("Listed runs", "count", len(infos))
	return infos, nil
}

// DeleteRun removes the run directory with all artifacts.
func (fs *FSStore) DeleteRun(id string) error {
	if !validName(id) {
		return fmt.Errorf("invalid run id %q", id)
	}

	dir := fs.runDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return &NotFoundError{RunID: id}
	} else if err != nil {
		return fmt.Errorf("failed to stat run directory: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove run directory: %w", err)
	}

	slog.Debug("Run deleted", "runID", id, "path", dir)
	return nil
}

// SaveImage writes img as <name>.png in the run directory.
func (fs *FSStore) SaveImage(id, name string, img image.Image) error {
	if !validName(id) || !validName(name) {
		return fmt.Errorf("invalid artifact %q for run %q", name, id)
	}
	return writeAtomic(filepath.Join(fs.runDir(id), name+".png"), func(f *os.File) error {
		return png.Encode(f, img)
	})
}

// ImagePath returns the path of artifact name for run id.
func (fs *FSStore) ImagePath(id, name string) (string, error) {
	if !validName(id) || !validName(name) {
		return "", fmt.Errorf("invalid artifact %q for run %q", name, id)
	}
	path := filepath.Join(fs.runDir(id), name+".png")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", &NotFoundError{RunID: id}
	} else if err != nil {
		return "", fmt.Errorf("failed to stat artifact: %w", err)
	}
	return path, nil
}

// writeAtomic writes through a temp file in the target directory and renames
// it into place.
func writeAtomic(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := f.Name()
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

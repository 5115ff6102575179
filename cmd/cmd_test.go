package main

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/singlepixel/internal/spi"
	"github.com/cwbudde/singlepixel/internal/store"
)

func TestExportPatterns(t *testing.T) {
	basis, err := spi.BuildBasis(2)
	if err != nil {
		t.Fatalf("BuildBasis failed: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "patterns")
	n, err := exportPatterns(basis, dir, 0)
	if err != nil {
		t.Fatalf("exportPatterns failed: %v", err)
	}
	if n != 4 {
		t.Errorf("Expected all 4 patterns, got %d", n)
	}
	for i := 0; i < 4; i++ {
		name := filepath.Join(dir, fmt.Sprintf("pattern_%04d.png", i))
		if _, err := os.Stat(name); err != nil {
			t.Errorf("Missing %s: %v", name, err)
		}
	}
}

func TestExportPatterns_Limit(t *testing.T) {
	basis, err := spi.BuildBasis(4)
	if err != nil {
		t.Fatalf("BuildBasis failed: %v", err)
	}

	dir := t.TempDir()
	n, err := exportPatterns(basis, dir, 3)
	if err != nil {
		t.Fatalf("exportPatterns failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 patterns, got %d", n)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 3 {
		t.Errorf("Expected 3 files, got %d", len(entries))
	}
}

func TestSaveRunTo(t *testing.T) {
	runStore, err := store.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	config := store.RunConfig{
		RefPath:    "ref.png",
		Resolution: 4,
		Scale:      "unit",
		Seed:       42,
		Noise:      spi.NoiseConfig{Policy: spi.PolicyBranch, BranchStd: 2},
	}
	metrics := spi.Metrics{CleanMAE: 1e-16, NoisyMAE: 0.5, NoisyMSE: 0.4, NoisyPSNR: 4}
	images := map[string]image.Image{"clean": image.NewGray(image.Rect(0, 0, 4, 4))}

	id, err := saveRunTo(runStore, "run-1", store.KindSimulation, config, metrics, nil, images, 2*time.Second)
	if err != nil {
		t.Fatalf("saveRunTo failed: %v", err)
	}
	if id != "run-1" {
		t.Errorf("Expected run-1, got %s", id)
	}

	run, err := runStore.LoadRun(id)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if run.Metrics != metrics {
		t.Errorf("Metrics mismatch: %+v", run.Metrics)
	}
	if run.ElapsedSeconds != 2 {
		t.Errorf("Expected 2s elapsed, got %g", run.ElapsedSeconds)
	}
	if _, err := runStore.ImagePath(id, "clean"); err != nil {
		t.Errorf("Image not saved: %v", err)
	}
}

func TestPersistRun_GeneratesID(t *testing.T) {
	dir := t.TempDir()
	config := store.RunConfig{
		RefPath:    "ref.png",
		Resolution: 4,
		Noise:      spi.NoiseConfig{Policy: spi.PolicyNone},
	}

	id, err := persistRun(dir, store.KindSimulation, config, spi.Metrics{}, nil, nil, time.Second)
	if err != nil {
		t.Fatalf("persistRun failed: %v", err)
	}
	if id == "" {
		t.Fatal("Expected a generated run ID")
	}
	if _, err := os.Stat(filepath.Join(dir, "runs", id, "run.json")); err != nil {
		t.Errorf("Run record missing: %v", err)
	}
}

func TestRun_ExitCodes(t *testing.T) {
	var stderr bytes.Buffer
	if code := run([]string{"version"}, &stderr); code != 0 {
		t.Errorf("version: expected exit code 0, got %d", code)
	}
	if stderr.Len() != 0 {
		t.Errorf("version: unexpected stderr output %q", stderr.String())
	}

	stderr.Reset()
	code := run([]string{"runs", "show", "missing", "--data-dir", t.TempDir()}, &stderr)
	if code != 1 {
		t.Errorf("runs show: expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "Error: run not found: missing") {
		t.Errorf("Expected error on stderr, got %q", stderr.String())
	}
}

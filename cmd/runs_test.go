package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/singlepixel/internal/store"
)

func testInfos(now time.Time) []store.RunInfo {
	return []store.RunInfo{
		{ID: "run1", Timestamp: now.AddDate(0, 0, -10)}, // 10 days old
		{ID: "run2", Timestamp: now.AddDate(0, 0, -5)},  // 5 days old
		{ID: "run3", Timestamp: now.AddDate(0, 0, -1)},  // 1 day old
		{ID: "run4", Timestamp: now.AddDate(0, 0, -30)}, // 30 days old
	}
}

func ids(infos []store.RunInfo) map[string]bool {
	out := make(map[string]bool)
	for _, info := range infos {
		out[info.ID] = true
	}
	return out
}

func TestSelectRunsForDeletion_ByAge(t *testing.T) {
	now := time.Now()

	toDelete := selectRunsForDeletion(testInfos(now), 0, 7, now)

	if len(toDelete) != 2 {
		t.Errorf("Expected 2 runs to delete, got %d", len(toDelete))
	}
	got := ids(toDelete)
	if !got["run1"] || !got["run4"] {
		t.Error("Expected run1 and run4 to be selected for deletion")
	}
}

func TestSelectRunsForDeletion_ByCount(t *testing.T) {
	now := time.Now()

	toDelete := selectRunsForDeletion(testInfos(now), 2, 0, now)

	if len(toDelete) != 2 {
		t.Errorf("Expected 2 runs to delete, got %d", len(toDelete))
	}
	got := ids(toDelete)
	if !got["run4"] || !got["run1"] {
		t.Error("Expected run4 and run1 to be selected for deletion (oldest)")
	}
}

func TestSelectRunsForDeletion_Combined(t *testing.T) {
	now := time.Now()

	// Age selects run1 and run4; keeping 1 adds run2. No duplicates.
	toDelete := selectRunsForDeletion(testInfos(now), 1, 7, now)

	if len(toDelete) != 3 {
		t.Errorf("Expected 3 runs to delete, got %d", len(toDelete))
	}
	got := ids(toDelete)
	if got["run3"] {
		t.Error("Newest run should be kept")
	}
}

func TestSelectRunsForDeletion_NothingToDo(t *testing.T) {
	now := time.Now()

	if toDelete := selectRunsForDeletion(testInfos(now), 10, 0, now); len(toDelete) != 0 {
		t.Errorf("Expected nothing to delete, got %d", len(toDelete))
	}
	if toDelete := selectRunsForDeletion(testInfos(now), 0, 60, now); len(toDelete) != 0 {
		t.Errorf("Expected nothing to delete, got %d", len(toDelete))
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.expected {
			t.Errorf("formatBytes(%d) = %s, expected %s", tt.bytes, got, tt.expected)
		}
	}
}

func TestGetDirSize(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, "a.bin"), make([]byte, 100), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(tmpDir, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.bin"), make([]byte, 50), 0644); err != nil {
		t.Fatal(err)
	}

	size, err := getDirSize(tmpDir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}
	if size != 150 {
		t.Errorf("Expected 150 bytes, got %d", size)
	}

	if _, err := getDirSize(filepath.Join(tmpDir, "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abc"); got != "abc" {
		t.Errorf("Short IDs should be unchanged, got %s", got)
	}
	if got := shortID("0123456789abcdef"); got != "0123456789ab..." {
		t.Errorf("Unexpected truncation: %s", got)
	}
}

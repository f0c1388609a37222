package fsm

import (
	"os"
	"path/filepath"
	"testing"

	"wslrocky/pkg/db"
)

// TestResponseAccumulation tests ProvisionResponse field accumulation
func TestResponseAccumulation(t *testing.T) {
	resp := &ProvisionResponse{
		InstanceID:    1,
		RestartState:  "restart_declined",
		ArchivePath:   `C:\wslrocky\downloads\rocky.tar.gz`,
		ArchiveSHA256: "abc123",
	}

	// Simulate the import state adding its fields.
	resp.InstallDir = `C:\wslrocky\instances\RockyLinux`
	resp.LocaleFailures = 1

	if resp.InstanceID == 0 {
		t.Error("InstanceID should be preserved from the check_db state")
	}
	if resp.ArchiveSHA256 == "" {
		t.Error("ArchiveSHA256 should be preserved from the fetch state")
	}
	if resp.InstallDir == "" {
		t.Error("InstallDir should be set after import")
	}
}

// TestReadyShortCircuit verifies the pass-through condition used by every
// state after check_db
func TestReadyShortCircuit(t *testing.T) {
	tests := []struct {
		status      string
		passThrough bool
	}{
		{db.StatusReady, true},
		{db.StatusPending, false},
		{db.StatusDownloading, false},
		{db.StatusFailed, false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.status == db.StatusReady; got != tt.passThrough {
			t.Errorf("status %q: expected passThrough=%v, got %v", tt.status, tt.passThrough, got)
		}
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.tar.gz")
	dst := filepath.Join(dir, "dst.tar.gz")

	if err := os.WriteFile(src, []byte("archive bytes"), 0644); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}
	// Overwrite is allowed: seed a stale destination.
	if err := os.WriteFile(dst, []byte("stale"), 0644); err != nil {
		t.Fatalf("failed to seed destination: %v", err)
	}

	if err := copyFile(src, dst); err != nil {
		t.Fatalf("copy failed: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("failed to read destination: %v", err)
	}
	if string(got) != "archive bytes" {
		t.Errorf("destination content mismatch: %q", got)
	}
}

func TestCopyFile_MissingSource(t *testing.T) {
	dir := t.TempDir()

	if err := copyFile(filepath.Join(dir, "missing"), filepath.Join(dir, "dst")); err == nil {
		t.Error("expected error for missing source")
	}
}

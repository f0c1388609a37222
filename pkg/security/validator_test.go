package security

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePath_PathTraversal(t *testing.T) {
	v := NewValidator(1024, 1024, 10.0)

	tests := []struct {
		path      string
		shouldErr bool
	}{
		{"file.txt", false},
		{"dir/file.txt", false},
		{"../etc/passwd", true},
		{"/etc/passwd", true},
		{"dir/../file.txt", false},
		{"dir/../../etc/passwd", true},
	}

	for _, tt := range tests {
		err := v.ValidatePath(tt.path)
		if tt.shouldErr && err == nil {
			t.Errorf("expected error for path: %s", tt.path)
		}
		if !tt.shouldErr && err != nil {
			t.Errorf("unexpected error for path %s: %v", tt.path, err)
		}
	}
}

func TestValidateSymlink(t *testing.T) {
	v := NewValidator(1024, 1024, 10.0)

	tests := []struct {
		symlink   string
		target    string
		shouldErr bool
	}{
		{"bin/sh", "/usr/bin/bash", false},
		{"etc/fonts/conf.d/foo", "../conf.avail/bar", false},
		{"foo", "../../etc/passwd", true},
	}

	for _, tt := range tests {
		err := v.ValidateSymlink(tt.symlink, tt.target)
		if tt.shouldErr && err == nil {
			t.Errorf("expected error for symlink %s -> %s", tt.symlink, tt.target)
		}
		if !tt.shouldErr && err != nil {
			t.Errorf("unexpected error for symlink %s -> %s: %v", tt.symlink, tt.target, err)
		}
	}
}

func TestValidateArchiveSize(t *testing.T) {
	v := NewValidator(100, 1000, 10.0)

	if err := v.ValidateArchiveSize(50); err != nil {
		t.Errorf("expected no error for size 50, got: %v", err)
	}

	if err := v.ValidateArchiveSize(150); err == nil {
		t.Error("expected error for size 150 exceeding limit 100")
	}
}

func TestValidateCompressionRatio(t *testing.T) {
	v := NewValidator(1024, 10240, 10.0)

	if err := v.ValidateCompressionRatio(10, 100); err != nil {
		t.Errorf("expected no error for ratio 10.0, got: %v", err)
	}

	if err := v.ValidateCompressionRatio(50, 1000); err == nil {
		t.Error("expected error for ratio 20.0 exceeding limit 10.0")
	}
}

func TestAddInspectedSize_ExceedsTotal(t *testing.T) {
	v := NewValidator(1024, 500, 10.0)

	if err := v.AddInspectedSize(400); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := v.AddInspectedSize(200); err == nil {
		t.Error("expected error when declared total exceeds limit")
	}
}

func writeTestArchive(t *testing.T, path string, members map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()

	tw := tar.NewWriter(gz)
	defer tw.Close()

	for name, content := range members {
		hdr := &tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("failed to write header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write content: %v", err)
		}
	}
}

func TestInspectArchive_Clean(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "rootfs.tar.gz")
	writeTestArchive(t, archivePath, map[string]string{
		"etc/os-release": "NAME=Rocky\n",
		"bin/true":       "#!/bin/sh\n",
	})

	v := NewValidator(1024*1024, 1024*1024, 100.0)
	if err := InspectArchive(archivePath, v); err != nil {
		t.Errorf("unexpected error for clean archive: %v", err)
	}
}

func TestInspectArchive_Traversal(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "rootfs.tar.gz")
	writeTestArchive(t, archivePath, map[string]string{
		"../outside": "escape\n",
	})

	v := NewValidator(1024*1024, 1024*1024, 100.0)
	if err := InspectArchive(archivePath, v); err == nil {
		t.Error("expected error for archive with traversal member")
	}
}

func TestInspectArchive_UnwalkableFormat(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "rootfs.tar.xz")
	if err := os.WriteFile(archivePath, []byte("not really xz"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	// Size check only for formats we do not walk.
	v := NewValidator(1024, 1024, 10.0)
	if err := InspectArchive(archivePath, v); err != nil {
		t.Errorf("unexpected error for shallow inspection: %v", err)
	}

	small := NewValidator(4, 1024, 10.0)
	if err := InspectArchive(archivePath, small); err == nil {
		t.Error("expected error when archive exceeds size limit")
	}
}

// Package security validates downloaded rootfs archives before they are
// handed to the WSL import. Archives are inspected, never extracted here.
package security

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
)

// Validator provides security validation for rootfs archives
type Validator struct {
	maxArchiveSize      int64
	maxTotalSize        int64
	maxCompressionRatio float64

	mu               sync.Mutex
	currentTotalSize int64
}

// NewValidator creates a new archive validator
func NewValidator(maxArchiveSize, maxTotalSize int64, maxCompressionRatio float64) *Validator {
	slog.Info("security_validator_init",
		"max_archive_size_mb", maxArchiveSize/1024/1024,
		"max_total_size_mb", maxTotalSize/1024/1024,
		"max_compression_ratio", maxCompressionRatio)

	return &Validator{
		maxArchiveSize:      maxArchiveSize,
		maxTotalSize:        maxTotalSize,
		maxCompressionRatio: maxCompressionRatio,
	}
}

// ValidatePath checks archive member paths for traversal attacks
func (v *Validator) ValidatePath(memberPath string) error {
	// Reject absolute paths
	if filepath.IsAbs(memberPath) {
		slog.Error("security_path_validation_failed", "path", memberPath, "reason", "absolute_path")
		return fmt.Errorf("security: absolute path not allowed: %s", memberPath)
	}

	clean := filepath.Clean(memberPath)

	// Reject paths that escape the archive root
	if strings.HasPrefix(clean, "..") {
		slog.Error("security_path_validation_failed", "path", memberPath, "reason", "path_traversal")
		return fmt.Errorf("security: path traversal detected: %s", memberPath)
	}

	return nil
}

// ValidateSymlink validates a symlink target in the context of the symlink's
// location inside the archive. Absolute targets are rootfs-relative and
// allowed (e.g. /bin/sh -> /usr/bin/bash); relative targets must not resolve
// above the archive root.
func (v *Validator) ValidateSymlink(symlinkPath, targetPath string) error {
	if filepath.IsAbs(targetPath) {
		return nil
	}

	symlinkDir := filepath.Dir(symlinkPath)
	cleanResolved := filepath.Clean(filepath.Join(symlinkDir, targetPath))

	// Count directory depth from the root; negative depth escapes it.
	parts := strings.Split(cleanResolved, string(filepath.Separator))
	depth := 0
	for _, part := range parts {
		if part == ".." {
			depth--
		} else if part != "" && part != "." {
			depth++
		}
	}

	if depth < 0 {
		slog.Error("security_symlink_validation_failed",
			"symlink", symlinkPath,
			"target", targetPath,
			"resolved", cleanResolved,
			"depth", depth)
		return fmt.Errorf("security: path traversal detected: symlink %s -> %s resolves to %s",
			symlinkPath, targetPath, cleanResolved)
	}

	return nil
}

// ValidateArchiveSize checks if the downloaded archive exceeds the size limit
func (v *Validator) ValidateArchiveSize(size int64) error {
	if size > v.maxArchiveSize {
		slog.Error("security_archive_size_exceeded",
			"archive_size_mb", size/1024/1024,
			"max_archive_size_mb", v.maxArchiveSize/1024/1024)
		return fmt.Errorf("security: archive size %d exceeds max %d", size, v.maxArchiveSize)
	}
	return nil
}

// AddInspectedSize tracks the declared uncompressed size of archive members
// and checks against the total limit
func (v *Validator) AddInspectedSize(size int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.currentTotalSize += size

	if v.currentTotalSize > v.maxTotalSize {
		slog.Error("security_total_size_exceeded",
			"current_total_mb", v.currentTotalSize/1024/1024,
			"max_total_mb", v.maxTotalSize/1024/1024)
		return fmt.Errorf("security: total declared size %d exceeds max %d",
			v.currentTotalSize, v.maxTotalSize)
	}

	return nil
}

// ValidateCompressionRatio checks for compression bombs
func (v *Validator) ValidateCompressionRatio(compressedSize, uncompressedSize int64) error {
	if compressedSize == 0 {
		slog.Error("security_compression_validation_failed", "reason", "zero_compressed_size")
		return fmt.Errorf("security: compressed size cannot be zero")
	}

	ratio := float64(uncompressedSize) / float64(compressedSize)

	if ratio > v.maxCompressionRatio {
		slog.Error("security_compression_bomb_detected",
			"ratio", ratio,
			"max_ratio", v.maxCompressionRatio,
			"compressed_mb", compressedSize/1024/1024,
			"uncompressed_mb", uncompressedSize/1024/1024)
		return fmt.Errorf("security: compression ratio %.2f exceeds max %.2f (compressed: %d, uncompressed: %d)",
			ratio, v.maxCompressionRatio, compressedSize, uncompressedSize)
	}

	return nil
}

// Reset resets the total size counter
func (v *Validator) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.currentTotalSize = 0
}

// CurrentTotalSize returns the running declared-size total
func (v *Validator) CurrentTotalSize() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.currentTotalSize
}

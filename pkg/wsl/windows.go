//go:build windows

package wsl

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"unicode/utf16"

	"wslrocky/pkg/errors"
)

// WindowsManager implements Manager via wsl.exe
type WindowsManager struct{}

// NewManager creates a Windows WSL manager
func NewManager() (Manager, error) {
	slog.Info("wsl_init", "platform", "windows")

	if _, err := exec.LookPath("wsl.exe"); err != nil {
		slog.Error("wsl_not_found", "error", err)
		return nil, fmt.Errorf("wsl.exe not found in PATH")
	}

	return &WindowsManager{}, nil
}

func (m *WindowsManager) Version(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "wsl.exe", "--version")
	output, err := cmd.Output()
	if err != nil {
		// Older WSL builds have no --version; callers treat "" as unknown.
		slog.Warn("wsl_version_query_failed", "error", err)
		return "", nil
	}

	text := decodeOutput(output)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			slog.Info("wsl_version", "version", line)
			return line, nil
		}
	}
	return "", nil
}

func (m *WindowsManager) SetDefaultVersion(ctx context.Context, version int) error {
	slog.Info("wsl_set_default_version", "version", version)

	cmd := exec.CommandContext(ctx, "wsl.exe", "--set-default-version", strconv.Itoa(version))
	if err := cmd.Run(); err != nil {
		slog.Error("wsl_set_default_version_failed", "version", version, "error", err)
		return errors.Wrapf(err, "failed to set default WSL version %d", version)
	}
	return nil
}

func (m *WindowsManager) InstallKernelUpdate(ctx context.Context, packagePath string) error {
	slog.Info("kernel_update_install", "package", packagePath)

	cmd := exec.CommandContext(ctx, "msiexec.exe", "/i", packagePath, "/qn", "/norestart")
	if err := cmd.Run(); err != nil {
		slog.Error("kernel_update_install_failed", "package", packagePath, "error", err)
		return errors.Wrap(err, "msiexec install failed")
	}

	slog.Info("kernel_update_installed", "package", packagePath)
	return nil
}

func (m *WindowsManager) Import(ctx context.Context, distroName, installDir, archivePath string) error {
	slog.Info("wsl_import_start", "distro", distroName, "install_dir", installDir, "archive", archivePath)

	cmd := exec.CommandContext(ctx, "wsl.exe", "--import", distroName, installDir, archivePath)
	if output, err := cmd.CombinedOutput(); err != nil {
		slog.Error("wsl_import_failed", "distro", distroName, "error", err, "output", decodeOutput(output))
		return errors.Wrapf(err, "wsl import failed for %s", distroName)
	}

	slog.Info("wsl_import_complete", "distro", distroName)
	return nil
}

func (m *WindowsManager) IsRegistered(ctx context.Context, distroName string) (bool, error) {
	cmd := exec.CommandContext(ctx, "wsl.exe", "--list", "--quiet")
	output, err := cmd.Output()
	if err != nil {
		// No registered distributions makes wsl.exe exit nonzero.
		return false, nil
	}

	for _, line := range strings.Split(decodeOutput(output), "\n") {
		if strings.TrimSpace(line) == distroName {
			return true, nil
		}
	}
	return false, nil
}

func (m *WindowsManager) Exec(ctx context.Context, distroName string, argv ...string) error {
	args := append([]string{"-d", distroName, "-u", "root", "--"}, argv...)

	cmd := exec.CommandContext(ctx, "wsl.exe", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, "command %q failed in %s: %s",
			strings.Join(argv, " "), distroName, strings.TrimSpace(decodeOutput(output)))
	}
	return nil
}

func (m *WindowsManager) Unregister(ctx context.Context, distroName string) error {
	slog.Info("wsl_unregister", "distro", distroName)

	cmd := exec.CommandContext(ctx, "wsl.exe", "--unregister", distroName)
	if err := cmd.Run(); err != nil {
		slog.Error("wsl_unregister_failed", "distro", distroName, "error", err)
		return errors.Wrapf(err, "failed to unregister %s", distroName)
	}
	return nil
}

// decodeOutput handles wsl.exe's UTF-16LE console output
func decodeOutput(raw []byte) string {
	if len(raw) < 2 || len(raw)%2 != 0 {
		return string(raw)
	}
	// Heuristic: UTF-16LE ASCII output has NUL high bytes.
	if !bytes.Contains(raw, []byte{0}) {
		return string(raw)
	}

	u16 := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		u16 = append(u16, uint16(raw[i])|uint16(raw[i+1])<<8)
	}
	return string(utf16.Decode(u16))
}

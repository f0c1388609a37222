//go:build windows

package shortcut

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"wslrocky/pkg/errors"
)

// DesktopInstaller writes .lnk shortcuts to the user's desktop
type DesktopInstaller struct{}

// NewInstaller creates a Windows desktop shortcut installer
func NewInstaller() Installer {
	return &DesktopInstaller{}
}

func (i *DesktopInstaller) Install(ctx context.Context, spec Spec) error {
	desktop, err := desktopDir()
	if err != nil {
		return errors.Wrap(err, "failed to locate desktop folder")
	}

	linkPath := filepath.Join(desktop, spec.Name+".lnk")
	slog.Info("shortcut_create", "path", linkPath, "target", spec.Target, "args", strings.Join(spec.Args, " "))

	// The shell COM object is the supported way to write .lnk files.
	script := fmt.Sprintf(
		`$s = (New-Object -ComObject WScript.Shell).CreateShortcut(%q); `+
			`$s.TargetPath = %q; `+
			`$s.Arguments = %q; `+
			`$s.Description = %q; `+
			`$s.Save()`,
		linkPath, spec.Target, strings.Join(spec.Args, " "), spec.Description)

	cmd := exec.CommandContext(ctx, "powershell.exe", "-NoProfile", "-NonInteractive", "-Command", script)
	if output, err := cmd.CombinedOutput(); err != nil {
		slog.Error("shortcut_create_failed", "path", linkPath, "error", err, "output", strings.TrimSpace(string(output)))
		return errors.Wrap(err, "failed to create shortcut")
	}

	slog.Info("shortcut_created", "path", linkPath)
	return nil
}

func desktopDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Desktop"), nil
}

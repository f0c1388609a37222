//go:build windows

package winfeature

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"wslrocky/pkg/errors"
)

// DismManager implements Manager on Windows via dism.exe
type DismManager struct{}

// NewManager creates a Windows feature manager
func NewManager() (Manager, error) {
	slog.Info("winfeature_init", "platform", "windows", "tool", "dism.exe")

	if _, err := exec.LookPath("dism.exe"); err != nil {
		slog.Error("dism_not_found", "error", err)
		return nil, fmt.Errorf("dism.exe not found in PATH (elevated shell required)")
	}

	return &DismManager{}, nil
}

func (m *DismManager) Enabled(ctx context.Context, name string) (bool, error) {
	cmd := exec.CommandContext(ctx, "dism.exe", "/online", "/english",
		"/get-featureinfo", fmt.Sprintf("/featurename:%s", name))
	output, err := cmd.Output()
	if err != nil {
		return false, errors.Wrapf(err, "failed to query feature %s", name)
	}

	// dism prints "State : Enabled" for enabled features. Anything else,
	// including "Enable Pending", still needs an enable request.
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "State") {
			continue
		}
		_, state, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		return strings.TrimSpace(state) == "Enabled", nil
	}

	return false, fmt.Errorf("no state line in dism output for %s", name)
}

func (m *DismManager) Enable(ctx context.Context, name string) error {
	cmd := exec.CommandContext(ctx, "dism.exe", "/online", "/enable-feature",
		fmt.Sprintf("/featurename:%s", name), "/all", "/norestart")
	if err := cmd.Run(); err != nil {
		slog.Error("feature_enable_failed", "feature", name, "error", err)
		return errors.Wrapf(err, "dism enable failed for %s", name)
	}
	return nil
}

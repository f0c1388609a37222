//go:build !windows

package shortcut

import (
	"context"
	"fmt"
	"runtime"
)

// StubInstaller is a no-op shortcut installer for non-Windows systems
type StubInstaller struct{}

// NewInstaller creates a stub installer on non-Windows systems
func NewInstaller() Installer {
	return &StubInstaller{}
}

func (i *StubInstaller) Install(ctx context.Context, spec Spec) error {
	return fmt.Errorf("desktop shortcuts not supported on %s", runtime.GOOS)
}

//go:build !windows

package wsl

import (
	"context"
	"fmt"
	"runtime"
)

// StubManager is a no-op WSL manager for non-Windows systems
type StubManager struct{}

// NewManager creates a stub manager on non-Windows systems
func NewManager() (Manager, error) {
	return &StubManager{}, nil
}

func (m *StubManager) Version(ctx context.Context) (string, error) {
	return "", nil
}

func (m *StubManager) SetDefaultVersion(ctx context.Context, version int) error {
	return fmt.Errorf("WSL not supported on %s", runtime.GOOS)
}

func (m *StubManager) InstallKernelUpdate(ctx context.Context, packagePath string) error {
	return fmt.Errorf("WSL not supported on %s", runtime.GOOS)
}

func (m *StubManager) Import(ctx context.Context, distroName, installDir, archivePath string) error {
	return fmt.Errorf("WSL not supported on %s", runtime.GOOS)
}

func (m *StubManager) IsRegistered(ctx context.Context, distroName string) (bool, error) {
	return false, fmt.Errorf("WSL not supported on %s", runtime.GOOS)
}

func (m *StubManager) Exec(ctx context.Context, distroName string, argv ...string) error {
	return fmt.Errorf("WSL not supported on %s", runtime.GOOS)
}

func (m *StubManager) Unregister(ctx context.Context, distroName string) error {
	return fmt.Errorf("WSL not supported on %s", runtime.GOOS)
}

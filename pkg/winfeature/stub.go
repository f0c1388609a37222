//go:build !windows

package winfeature

import (
	"context"
	"fmt"
	"runtime"
)

// StubManager is a no-op feature manager for non-Windows systems
type StubManager struct{}

// NewManager creates a stub manager on non-Windows systems
func NewManager() (Manager, error) {
	return &StubManager{}, nil
}

func (m *StubManager) Enabled(ctx context.Context, name string) (bool, error) {
	return false, fmt.Errorf("optional features not supported on %s", runtime.GOOS)
}

func (m *StubManager) Enable(ctx context.Context, name string) error {
	return fmt.Errorf("optional features not supported on %s", runtime.GOOS)
}

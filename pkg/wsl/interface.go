package wsl

import "context"

// Manager wraps the WSL command surface
type Manager interface {
	// Version returns the installed WSL version string, or "" when the
	// query fails (treated as a negative result, never an error path
	// for callers)
	Version(ctx context.Context) (string, error)

	// SetDefaultVersion sets the default WSL version for new distributions
	SetDefaultVersion(ctx context.Context, version int) error

	// InstallKernelUpdate installs the WSL2 kernel update package
	InstallKernelUpdate(ctx context.Context, packagePath string) error

	// Import registers a rootfs archive as a named distribution
	Import(ctx context.Context, distroName, installDir, archivePath string) error

	// IsRegistered reports whether a distribution name is already registered
	IsRegistered(ctx context.Context, distroName string) (bool, error)

	// Exec runs a command inside the named distribution as root
	Exec(ctx context.Context, distroName string, argv ...string) error

	// Unregister removes a distribution and its backing filesystem
	Unregister(ctx context.Context, distroName string) error
}

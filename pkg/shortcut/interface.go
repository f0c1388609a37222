package shortcut

import "context"

// Spec describes a launcher shortcut for an imported distribution
type Spec struct {
	// Name is the shortcut's display name (file name without extension)
	Name string

	// Target is the launcher binary, e.g. wsl.exe
	Target string

	// Args are passed to the target, e.g. -d RockyLinux
	Args []string

	// Description is the shortcut's tooltip text
	Description string
}

// Installer creates a desktop launcher shortcut
type Installer interface {
	Install(ctx context.Context, spec Spec) error
}

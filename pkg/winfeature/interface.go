package winfeature

import "context"

// Required Windows optional features for WSL2.
const (
	FeatureWSL = "Microsoft-Windows-Subsystem-Linux"
	FeatureVMP = "VirtualMachinePlatform"
)

// RequiredFeatures lists the optional features the provisioner needs,
// in the order they are checked.
var RequiredFeatures = []string{FeatureWSL, FeatureVMP}

// Manager queries and enables Windows optional features
type Manager interface {
	// Enabled reports whether the named optional feature is enabled
	Enabled(ctx context.Context, name string) (bool, error)

	// Enable issues a privileged enable request for the named feature
	// without triggering an immediate restart
	Enable(ctx context.Context, name string) error
}

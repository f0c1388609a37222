package fsm

// ProvisionRequest is the FSM input
type ProvisionRequest struct {
	DistroName string
	ImageURL   string
	KernelURL  string
}

// ProvisionResponse is the FSM output (accumulated across transitions)
type ProvisionResponse struct {
	// From CheckDB
	InstanceID int64

	// From EnsureFeatures
	RestartState string

	// From FetchAssets
	ArchivePath   string
	ArchiveSHA256 string
	ArchiveSize   int64
	KernelPath    string

	// From ImportDistro
	InstallDir string

	// From ConfigureLocale
	LocaleFailures int

	// From Complete/Failed
	Status       string
	ErrorMessage string
}

// State names
const (
	StateCheckDB        = "check_db"
	StateEnsureFeatures = "ensure_features"
	StateFetchAssets    = "fetch_assets"
	StateInspectArchive = "inspect_archive"
	StateImportDistro   = "import_distro"
	StateInstallLaunch  = "install_launcher"
	StateConfigLocale   = "configure_locale"
	StateComplete       = "complete"
	StateFailed         = "failed"
)

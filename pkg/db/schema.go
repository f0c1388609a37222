package db

// Schema defines the SQLite database schema for WSL instances.
// It creates the instances table with indexes for efficient querying,
// and a restarts table auditing feature-enable reboots.
const Schema = `
CREATE TABLE IF NOT EXISTS instances (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    distro_name TEXT NOT NULL UNIQUE,
    image_url TEXT NOT NULL,
    archive_sha256 TEXT NOT NULL,
    status TEXT NOT NULL CHECK(status IN ('pending', 'downloading', 'imported', 'ready', 'failed', 'cleaned')),
    install_dir TEXT,
    archive_path TEXT,
    error_message TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_instances_distro_name ON instances(distro_name);
CREATE INDEX IF NOT EXISTS idx_instances_status ON instances(status);
CREATE INDEX IF NOT EXISTS idx_instances_created_at ON instances(created_at);

CREATE TABLE IF NOT EXISTS restarts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    distro_name TEXT NOT NULL,
    scheduled_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    resumed_at TIMESTAMP
);
`

// Status constants
const (
	StatusPending     = "pending"
	StatusDownloading = "downloading"
	StatusImported    = "imported"
	StatusReady       = "ready"
	StatusFailed      = "failed"
	StatusCleaned     = "cleaned"
)

// Instance represents a provisioned WSL distribution record
type Instance struct {
	ID            int64
	DistroName    string
	ImageURL      string
	ArchiveSHA256 string
	Status        string
	InstallDir    string
	ArchivePath   string
	ErrorMessage  string
	CreatedAt     string
	UpdatedAt     string
}

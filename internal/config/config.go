package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Default asset locations. The kernel update URL is Microsoft's official
// package; the image URL is the Rocky Linux WSL base image.
const (
	DefaultImageURL  = "https://dl.rockylinux.org/pub/rocky/9/images/x86_64/Rocky-9-WSL-Base.latest.x86_64.rootfs.tar.gz"
	DefaultKernelURL = "https://wslstorestorage.blob.core.windows.net/wslblob/wsl_update_x64.msi"
)

// Config holds all application configuration
type Config struct {
	// Database paths
	SQLitePath string `mapstructure:"sqlite-path"`
	FSMDBPath  string `mapstructure:"fsm-db-path"`

	// Working directory for downloads and state
	WorkDir string `mapstructure:"work-dir"`

	// Distribution identity
	DistroName string `mapstructure:"distro-name"`
	InstallDir string `mapstructure:"install-dir"`
	Locale     string `mapstructure:"locale"`

	// Asset locations (https:// or s3:// URLs)
	ImageURL  string `mapstructure:"image-url"`
	KernelURL string `mapstructure:"kernel-url"`

	// Optional S3 mirror
	S3Bucket string `mapstructure:"s3-bucket"`
	S3Region string `mapstructure:"s3-region"`

	// Security limits for downloaded archives
	MaxArchiveSize      int64   `mapstructure:"max-archive-size"`
	MaxTotalSize        int64   `mapstructure:"max-total-size"`
	MaxCompressionRatio float64 `mapstructure:"max-compression-ratio"`

	// Non-interactive mode: never prompt, never reboot
	AssumeYes bool `mapstructure:"assume-yes"`

	// FSM configuration
	FSMMaxRetries int `mapstructure:"fsm-max-retries"`
}

// Load reads configuration from environment, config file, and defaults
func Load() (*Config, error) {
	viper.SetDefault("sqlite-path", "")
	viper.SetDefault("fsm-db-path", "")
	viper.SetDefault("work-dir", "")
	viper.SetDefault("distro-name", "RockyLinux")
	viper.SetDefault("install-dir", "")
	viper.SetDefault("locale", "en_US")
	viper.SetDefault("image-url", DefaultImageURL)
	viper.SetDefault("kernel-url", DefaultKernelURL)
	viper.SetDefault("s3-bucket", "")
	viper.SetDefault("s3-region", "us-east-1")
	viper.SetDefault("max-archive-size", 4*1024*1024*1024)
	viper.SetDefault("max-total-size", 20*1024*1024*1024)
	viper.SetDefault("max-compression-ratio", 100.0)
	viper.SetDefault("assume-yes", false)
	viper.SetDefault("fsm-max-retries", 5)

	// Environment variables (WSLROCKY_WORK_DIR, etc.)
	viper.SetEnvPrefix("WSLROCKY")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Config file (optional)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.wslrocky")

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Paths derive from the working directory unless set explicitly.
	if cfg.WorkDir == "" {
		cfg.WorkDir = defaultWorkDir()
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(cfg.WorkDir, "state", "instances.db")
	}
	if cfg.FSMDBPath == "" {
		cfg.FSMDBPath = filepath.Join(cfg.WorkDir, "state", "fsm.db")
	}
	if cfg.InstallDir == "" {
		cfg.InstallDir = filepath.Join(cfg.WorkDir, "instances", cfg.DistroName)
	}

	return &cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.SQLitePath == "" {
		return fmt.Errorf("sqlite-path cannot be empty")
	}
	if c.FSMDBPath == "" {
		return fmt.Errorf("fsm-db-path cannot be empty")
	}
	if c.DistroName == "" {
		return fmt.Errorf("distro-name cannot be empty")
	}
	if c.ImageURL == "" {
		return fmt.Errorf("image-url cannot be empty")
	}
	if strings.HasPrefix(c.ImageURL, "s3://") && c.S3Bucket == "" {
		return fmt.Errorf("image-url uses s3:// but s3-bucket is empty")
	}
	if c.MaxArchiveSize <= 0 {
		return fmt.Errorf("max-archive-size must be positive")
	}
	if c.MaxTotalSize <= 0 {
		return fmt.Errorf("max-total-size must be positive")
	}
	if c.MaxCompressionRatio <= 0 {
		return fmt.Errorf("max-compression-ratio must be positive")
	}
	if c.FSMMaxRetries < 0 {
		return fmt.Errorf("fsm-max-retries must be non-negative")
	}
	return nil
}

// defaultWorkDir roots state next to the executable, falling back to a
// fixed drive-root path when the executable path cannot be resolved.
func defaultWorkDir() string {
	exe, err := os.Executable()
	if err != nil {
		return `C:\wslrocky`
	}
	return filepath.Join(filepath.Dir(exe), "wslrocky-data")
}

package commands

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/superfly/fsm"
	"wslrocky/internal/config"
	"wslrocky/pkg/db"
	"wslrocky/pkg/errors"
	appfsm "wslrocky/pkg/fsm"
	"wslrocky/pkg/restart"
	"wslrocky/pkg/security"
	"wslrocky/pkg/shortcut"
	"wslrocky/pkg/storage"
	"wslrocky/pkg/winfeature"
	"wslrocky/pkg/wsl"
)

var provisionCmd = &cobra.Command{
	Use:   "provision [distro-name]",
	Short: "Enable WSL features, fetch the Rocky image, and import it",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProvision,
}

func init() {
	rootCmd.AddCommand(provisionCmd)
}

func runProvision(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if len(args) == 1 {
		cfg.DistroName = args[0]
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config invalid")
	}

	return runProvisionFSM(ctx, cfg)
}

// runProvisionFSM wires the dependencies and drives the provisioning FSM to
// completion. Shared by provision and resume.
func runProvisionFSM(ctx context.Context, cfg *config.Config) error {
	// Ensure all necessary directories exist
	if err := ensureDirectories(cfg.SQLitePath, cfg.FSMDBPath, cfg.WorkDir); err != nil {
		return err
	}

	repo, err := db.NewRepository(cfg.SQLitePath)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}
	defer repo.Close()

	httpClient := storage.NewHTTPClient()
	var s3Client storage.Downloader
	if cfg.S3Bucket != "" {
		c, err := storage.NewS3Client(ctx, cfg.S3Bucket, cfg.S3Region)
		if err != nil {
			return errors.Wrap(err, "S3 client failed")
		}
		s3Client = c
	}
	fetcher := storage.NewFetcher(httpClient, s3Client, os.Stdin, os.Stdout, cfg.AssumeYes)

	validator := security.NewValidator(cfg.MaxArchiveSize, cfg.MaxTotalSize, cfg.MaxCompressionRatio)

	featureMgr, err := winfeature.NewManager()
	if err != nil {
		return errors.Wrap(err, "feature manager failed")
	}
	gate := winfeature.NewGate(featureMgr)

	wslMgr, err := wsl.NewManager()
	if err != nil {
		return errors.Wrap(err, "WSL manager failed")
	}

	exePath, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "failed to resolve executable path")
	}
	coordinator := restart.NewCoordinator(
		restart.NewScheduler(), restart.NewRestarter(),
		os.Stdin, os.Stdout,
		exePath, []string{"resume"}, cfg.AssumeYes)

	manager, err := fsm.New(fsm.Config{DBPath: cfg.FSMDBPath})
	if err != nil {
		return errors.Wrap(err, "FSM manager failed")
	}
	defer manager.Shutdown(10 * time.Second)

	machine := appfsm.NewMachine(repo, fetcher, validator, gate, wslMgr,
		coordinator, shortcut.NewInstaller(), cfg.WorkDir, cfg.Locale, cfg.FSMMaxRetries)
	start, _, err := machine.Register(ctx, manager)
	if err != nil {
		return errors.Wrap(err, "FSM register failed")
	}

	req := &appfsm.ProvisionRequest{
		DistroName: cfg.DistroName,
		ImageURL:   cfg.ImageURL,
		KernelURL:  cfg.KernelURL,
	}
	resp := &appfsm.ProvisionResponse{}

	version, err := start(ctx, cfg.DistroName, fsm.NewRequest(req, resp))
	if err != nil {
		return errors.Wrap(err, "FSM start failed")
	}

	slog.Info("fsm started", "version", version)

	if err := manager.Wait(ctx, version); err != nil {
		return errors.Wrap(err, "FSM execution failed")
	}

	slog.Info("provisioning completed",
		"status", resp.Status,
		"distro", cfg.DistroName,
		"install_dir", resp.InstallDir,
		"restart_state", resp.RestartState)

	return nil
}

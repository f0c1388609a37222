package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"wslrocky/internal/config"
	"wslrocky/pkg/db"
	"wslrocky/pkg/errors"
	"wslrocky/pkg/wsl"
)

var (
	cleanupAll      bool
	cleanupInstance string
	cleanupOrphaned bool
	cleanupPurge    bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Clean up instance resources (downloads, backing folders, registrations)",
	Long: `Clean up resources associated with provisioned instances:
  --all               Clean all resources for all instances
  --instance <name>   Clean resources for a specific instance
  --orphaned          Clean downloaded files not tracked in the database
  --purge             With --all or --instance, delete the record too`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().BoolVar(&cleanupAll, "all", false, "Clean all resources")
	cleanupCmd.Flags().StringVar(&cleanupInstance, "instance", "", "Clean a specific instance by distribution name")
	cleanupCmd.Flags().BoolVar(&cleanupOrphaned, "orphaned", false, "Clean orphaned downloads")
	cleanupCmd.Flags().BoolVar(&cleanupPurge, "purge", false, "Delete database records instead of marking them cleaned")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	if err := ensureDirectories(cfg.SQLitePath, "", ""); err != nil {
		return err
	}

	repo, err := db.NewRepository(cfg.SQLitePath)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}
	defer repo.Close()

	wslMgr, err := wsl.NewManager()
	if err != nil {
		fmt.Printf("WSL unavailable, skipping unregistration: %v\n", err)
		wslMgr = nil
	}

	ctx := context.Background()

	switch {
	case cleanupAll:
		return cleanupAllInstances(ctx, repo, wslMgr, cfg)
	case cleanupInstance != "":
		return cleanupOneInstance(ctx, repo, wslMgr, cfg, cleanupInstance)
	case cleanupOrphaned:
		return cleanupOrphanedDownloads(repo, cfg)
	default:
		return fmt.Errorf("must specify --all, --instance, or --orphaned")
	}
}

func cleanupAllInstances(ctx context.Context, repo *db.Repository, wslMgr wsl.Manager, cfg *config.Config) error {
	instances, err := repo.List()
	if err != nil {
		return errors.Wrap(err, "list failed")
	}

	fmt.Printf("Cleaning up %d instances...\n", len(instances))

	for _, inst := range instances {
		if err := cleanupInstanceResources(ctx, repo, wslMgr, cfg, inst); err != nil {
			fmt.Printf("Failed to clean %s: %v\n", inst.DistroName, err)
		} else {
			fmt.Printf("Cleaned: %s\n", inst.DistroName)
		}
	}

	return nil
}

func cleanupOneInstance(ctx context.Context, repo *db.Repository, wslMgr wsl.Manager, cfg *config.Config, distroName string) error {
	inst, err := repo.GetByName(distroName)
	if err != nil {
		return errors.Wrap(err, "instance lookup failed")
	}
	if inst == nil {
		return fmt.Errorf("instance not found: %s", distroName)
	}

	fmt.Printf("Cleaning up %s...\n", distroName)

	if err := cleanupInstanceResources(ctx, repo, wslMgr, cfg, inst); err != nil {
		return errors.Wrap(err, "cleanup failed")
	}

	fmt.Printf("Cleaned: %s\n", distroName)
	return nil
}

func cleanupInstanceResources(ctx context.Context, repo *db.Repository, wslMgr wsl.Manager, cfg *config.Config, inst *db.Instance) error {
	// 1. Unregister the distribution if it is still registered
	if wslMgr != nil {
		registered, err := wslMgr.IsRegistered(ctx, inst.DistroName)
		if err == nil && registered {
			if err := wslMgr.Unregister(ctx, inst.DistroName); err != nil {
				fmt.Printf("Unregister warning: %v\n", err)
			}
		}
	}

	// 2. Remove the backing folder
	if inst.InstallDir != "" {
		if _, err := os.Stat(inst.InstallDir); err == nil {
			if err := os.RemoveAll(inst.InstallDir); err != nil {
				return errors.Wrap(err, "failed to remove backing folder")
			}
		}
	}

	// 3. Remove the downloaded archive
	if inst.ArchivePath != "" {
		if _, err := os.Stat(inst.ArchivePath); err == nil {
			if err := os.Remove(inst.ArchivePath); err != nil {
				return errors.Wrap(err, "failed to remove download")
			}
		}
	}

	// 4. Drop or mark the database record
	if cleanupPurge {
		if err := repo.Delete(inst.ID); err != nil {
			return errors.Wrap(err, "failed to delete record")
		}
		return nil
	}

	inst.Status = db.StatusCleaned
	if err := repo.Update(inst); err != nil {
		return errors.Wrap(err, "failed to update database")
	}

	return nil
}

func cleanupOrphanedDownloads(repo *db.Repository, cfg *config.Config) error {
	fmt.Println("Scanning for orphaned downloads...")

	instances, err := repo.List()
	if err != nil {
		return errors.Wrap(err, "list failed")
	}

	tracked := make(map[string]bool, len(instances))
	for _, inst := range instances {
		if inst.ArchivePath != "" {
			tracked[filepath.Base(inst.ArchivePath)] = true
		}
	}

	orphanCount := 0
	downloadDir := filepath.Join(cfg.WorkDir, "downloads")
	entries, err := os.ReadDir(downloadDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No download directory, nothing to do")
			return nil
		}
		return errors.Wrap(err, "failed to read download directory")
	}

	for _, entry := range entries {
		if entry.IsDir() || tracked[entry.Name()] {
			continue
		}

		orphanPath := filepath.Join(downloadDir, entry.Name())
		if err := os.Remove(orphanPath); err != nil {
			fmt.Printf("Failed to remove orphaned download %s: %v\n", entry.Name(), err)
		} else {
			fmt.Printf("Removed orphaned download: %s\n", entry.Name())
			orphanCount++
		}
	}

	fmt.Printf("Removed %d orphaned downloads\n", orphanCount)
	return nil
}

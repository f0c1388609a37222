package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"wslrocky/internal/config"
	"wslrocky/pkg/db"
	"wslrocky/pkg/errors"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List provisioned instances and their status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	// Ensure database directory exists
	if err := ensureDirectories(cfg.SQLitePath, "", ""); err != nil {
		return err
	}

	repo, err := db.NewRepository(cfg.SQLitePath)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}
	defer repo.Close()

	instances, err := repo.List()
	if err != nil {
		return errors.Wrap(err, "list failed")
	}

	if len(instances) == 0 {
		fmt.Println("No instances found")
		return nil
	}

	fmt.Printf("%-20s %-12s %-40s %-18s\n", "DISTRO", "STATUS", "INSTALL DIR", "SHA256")
	fmt.Println("------------------------------------------------------------------------------------------------")

	for _, inst := range instances {
		installDir := inst.InstallDir
		if installDir == "" {
			installDir = "-"
		}
		sha := "-"
		if inst.ArchiveSHA256 != "" {
			sha = inst.ArchiveSHA256[:16] + "..."
		}

		fmt.Printf("%-20s %-12s %-40s %-18s\n",
			inst.DistroName, inst.Status, installDir, sha)
	}

	return nil
}

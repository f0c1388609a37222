package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"wslrocky/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "wslrocky",
	Short: "Rocky Linux WSL provisioner",
	Long: `Provisions a Rocky Linux distribution into WSL2: enables the required
Windows optional features, coordinates the reboot they need, downloads the
rootfs image, imports it as a named distribution, creates a desktop shortcut,
and configures locales inside the instance.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("work-dir", "", "Working directory for downloads and state")
	rootCmd.PersistentFlags().String("distro-name", "RockyLinux", "WSL distribution name")
	rootCmd.PersistentFlags().String("image-url", config.DefaultImageURL, "Rootfs archive URL (https:// or s3://)")
	rootCmd.PersistentFlags().String("kernel-url", config.DefaultKernelURL, "WSL2 kernel update package URL")
	rootCmd.PersistentFlags().String("s3-bucket", "", "S3 mirror bucket for s3:// asset URLs")
	rootCmd.PersistentFlags().String("s3-region", "us-east-1", "S3 mirror region")
	rootCmd.PersistentFlags().Bool("assume-yes", false, "Never prompt: keep existing downloads, defer any restart")

	viper.BindPFlag("work-dir", rootCmd.PersistentFlags().Lookup("work-dir"))
	viper.BindPFlag("distro-name", rootCmd.PersistentFlags().Lookup("distro-name"))
	viper.BindPFlag("image-url", rootCmd.PersistentFlags().Lookup("image-url"))
	viper.BindPFlag("kernel-url", rootCmd.PersistentFlags().Lookup("kernel-url"))
	viper.BindPFlag("s3-bucket", rootCmd.PersistentFlags().Lookup("s3-bucket"))
	viper.BindPFlag("s3-region", rootCmd.PersistentFlags().Lookup("s3-region"))
	viper.BindPFlag("assume-yes", rootCmd.PersistentFlags().Lookup("assume-yes"))
}

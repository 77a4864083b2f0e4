package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/extrun/extrun/internal/logging"
	"github.com/extrun/extrun/internal/updater"
)

// releaseRepository is the GitHub slug releases are published under.
const releaseRepository = "extrun/extrun"

// CreateUpdateCmd creates the update command.
func CreateUpdateCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update extrun to the latest release",
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "info", Format: "text"})
			logger := logging.GetLogger("updater")

			svc, err := updater.NewService(releaseRepository, logger)
			if err != nil {
				logger.Error("Failed to initialize updater", "error", err)
				os.Exit(1)
			}

			ctx := context.Background()
			info, err := svc.CheckForUpdate(ctx)
			if err != nil {
				logger.Error("Update check failed", "error", err)
				os.Exit(1)
			}
			if !info.UpdateAvailable {
				logger.Info("Already up to date", "version", info.CurrentVersion)
				return
			}

			logger.Info("Update available",
				"current", info.CurrentVersion, "latest", info.LatestVersion, "url", info.ReleaseURL)
			if check {
				return
			}

			if err := svc.ApplyUpdate(ctx); err != nil {
				logger.Error("Update failed", "error", err)
				os.Exit(1)
			}
			logger.Info("Updated", "version", info.LatestVersion)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Only check for a new release, do not apply it")

	return cmd
}

package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/extrun/extrun/internal/config"
	"github.com/extrun/extrun/internal/install"
	"github.com/extrun/extrun/internal/logging"
	"github.com/extrun/extrun/internal/reload"
)

// CreateReloadCmd creates the reload command.
func CreateReloadCmd() *cobra.Command {
	var configFile string
	var binary string
	var profileDir string
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Reload proxied plugins in an already-running host",
		Long: `Sends a reload request for every configured plugin to a running host instance ` +
			`through the side channel used for proxy installs. Only works against a profile ` +
			`prepared in proxy mode; sessions started with the root command reload on their own ` +
			`when sources change.`,
		Run: func(_ *cobra.Command, _ []string) {
			loggingConfig := logging.Config{Level: "info", Format: "text"}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("reload")

			if binary == "" {
				logger.Error("A host binary is required (--binary)")
				os.Exit(1)
			}

			specs, _, err := config.LoadManifest(configFile)
			if err != nil {
				logger.Error("Failed to load config", "error", err, "config", configFile)
				os.Exit(1)
			}
			if len(specs) == 0 {
				logger.Warn("No plugins configured, nothing to reload")
				return
			}

			plugins := make([]install.Plugin, 0, len(specs))
			for _, p := range specs {
				abs, absErr := filepath.Abs(p.SourceDir)
				if absErr != nil {
					logger.Error("Source directory not resolvable", "plugin", p.ID, "error", absErr)
					os.Exit(1)
				}
				plugins = append(plugins, install.Plugin{ID: p.ID, SourceDir: abs, Name: p.Name})
			}

			absProfile, err := filepath.Abs(profileDir)
			if err != nil {
				logger.Error("Profile directory not resolvable", "error", err)
				os.Exit(1)
			}

			side := reload.NewSideChannel(binary, absProfile, logger)
			coordinator := reload.NewProxyCoordinator(plugins, side, logger)

			failed := 0
			for _, res := range coordinator.ReloadAll(context.Background()) {
				if res.Err != nil {
					failed++
					logger.Warn("Reload failed", "source", res.SourceDir, "error", res.Err)
				}
			}
			if failed > 0 {
				logger.Error("Some plugins failed to reload", "failed", failed, "total", len(plugins))
				os.Exit(1)
			}
			logger.Info("All plugins reloaded", "total", len(plugins))
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "extrun.toml", "Path to configuration file")
	cmd.Flags().StringVar(&binary, "binary", "", "Path to the host binary")
	cmd.Flags().StringVar(&profileDir, "profile-dir", ".extrun/profile", "Run profile directory")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}

package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/extrun/extrun/internal/config"
	"github.com/extrun/extrun/internal/install"
	"github.com/extrun/extrun/internal/logging"
	"github.com/extrun/extrun/internal/profile"
)

// CreateProfileCmd creates the profile command.
func CreateProfileCmd() *cobra.Command {
	var configFile string
	var profileDir string
	var proxy bool
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Prepare a run profile without launching the host",
		Long: `Merges the built-in development defaults, any previously persisted preferences ` +
			`and the overrides from the config file into the profile's preference file. ` +
			`With --proxy, plugin pointer files are written as well.`,
		Run: func(_ *cobra.Command, _ []string) {
			loggingConfig := logging.Config{Level: "info", Format: "text"}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("profile")

			plugins, prefs, err := config.LoadManifest(configFile)
			if err != nil {
				logger.Error("Failed to load config", "error", err, "config", configFile)
				os.Exit(1)
			}

			mgr := profile.NewManager(logger)
			if err := mgr.Prepare(profileDir, prefs); err != nil {
				logger.Error("Failed to prepare profile", "error", err)
				os.Exit(1)
			}

			if proxy {
				resolved := make([]install.Plugin, 0, len(plugins))
				for _, p := range plugins {
					abs, absErr := filepath.Abs(p.SourceDir)
					if absErr != nil {
						logger.Error("Source directory not resolvable", "plugin", p.ID, "error", absErr)
						os.Exit(1)
					}
					resolved = append(resolved, install.Plugin{ID: p.ID, SourceDir: abs, Name: p.Name})
				}

				absProfile, absErr := filepath.Abs(profileDir)
				if absErr != nil {
					logger.Error("Profile directory not resolvable", "error", absErr)
					os.Exit(1)
				}
				installer := install.NewInstaller(logger)
				if err := installer.InstallProxy(absProfile, resolved); err != nil {
					logger.Error("Failed to proxy plugins", "error", err)
					os.Exit(1)
				}
			}

			logger.Info("Profile ready", "path", profileDir, "plugins", len(plugins))
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "extrun.toml", "Path to configuration file")
	cmd.Flags().StringVar(&profileDir, "profile-dir", ".extrun/profile", "Run profile directory")
	cmd.Flags().BoolVar(&proxy, "proxy", false, "Also write proxy pointer files for configured plugins")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}

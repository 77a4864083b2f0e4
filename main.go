package main

import (
	"context"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/extrun/extrun/cmd"
	"github.com/extrun/extrun/internal/config"
	"github.com/extrun/extrun/internal/events"
	"github.com/extrun/extrun/internal/logging"
	"github.com/extrun/extrun/internal/metrics"
	"github.com/extrun/extrun/internal/process"
	"github.com/extrun/extrun/internal/remote"
	"github.com/extrun/extrun/internal/session"
	"github.com/extrun/extrun/internal/watch"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"extrun.toml"`

	// Run settings
	Binary      string `help:"Path to the host binary" short:"b" toml:"run.binary" env:"BINARY"`
	ProfileDir  string `help:"Run profile directory" default:".extrun/profile" toml:"run.profile_dir" env:"PROFILE_DIR"`
	DataDir     string `help:"Host data directory (defaults to the profile directory)" toml:"run.data_dir" env:"DATA_DIR"`
	Proxy       bool   `help:"Install plugins through filesystem pointer files instead of the remote channel" default:"false" toml:"run.proxy" env:"PROXY"`
	Devtools    bool   `help:"Open the script debugger on startup" default:"false" toml:"run.devtools" env:"DEVTOOLS"`
	ExtraArgs   string `help:"Extra arguments passed to the host binary (space separated)" toml:"run.extra_args" env:"EXTRA_ARGS"`
	KillCommand string `help:"Override the platform forced-kill command" toml:"run.kill_command" env:"KILL_COMMAND"`

	// Watch settings
	Watch           bool `help:"Reload plugins when their sources change" default:"true" toml:"watch.enabled" env:"WATCH"`
	WatchDebounceMs int  `help:"Debounce for source changes in milliseconds" default:"500" toml:"watch.debounce_ms" env:"WATCH_DEBOUNCE_MS"`

	// Observability settings
	MetricsAddr string `help:"Address for the Prometheus debug listener (empty disables it)" toml:"metrics.addr" env:"METRICS_ADDR"`

	// Logging settings
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingHost   string `help:"Host process output logging level" default:"info" toml:"logging.host" env:"LOGGING_HOST"`
}

func main() {
	var cli humacli.CLI
	var runner *session.Runner
	var watcher *watch.Watcher
	var sessionMetrics *metrics.Metrics
	var stopping atomic.Bool
	runDone := make(chan struct{})

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// The root command carries the flag-change state LoadConfig needs
		// to keep CLI-set values above TOML and env.
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			logging.GetLogger("main").Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"host": opts.LoggingHost,
			},
		})
		logger := logging.GetLogger("main")

		hooks.OnStart(func() {
			defer close(runDone)

			plugins, prefs, err := config.LoadManifest(opts.Config)
			if err != nil {
				logger.Error("Failed to load config", "error", err, "config", opts.Config)
				os.Exit(1)
			}
			if len(plugins) == 0 {
				logger.Error("No plugins configured, add [[plugins]] entries to the config file")
				os.Exit(1)
			}

			dialer := remote.DefaultDialer()
			if dialer == nil {
				logger.Error("No remote-control client linked into this build")
				os.Exit(1)
			}

			bus := events.New()
			sessionMetrics = metrics.New(logging.GetLogger("metrics"))
			if opts.MetricsAddr != "" {
				sessionMetrics.Serve(opts.MetricsAddr)
			}

			bus.Subscribe(func(e events.ReloadCompletedEvent) {
				logger.Info("Reload batch finished", "total", e.Total, "failed", e.Failed)
			})

			infos := make([]session.PluginInfo, 0, len(plugins))
			sourceDirs := make([]string, 0, len(plugins))
			for _, p := range plugins {
				infos = append(infos, session.PluginInfo{ID: p.ID, SourceDir: p.SourceDir, Name: p.Name})
				sourceDirs = append(sourceDirs, p.SourceDir)
			}

			runner, err = session.NewRunner(session.Options{
				Binary:      opts.Binary,
				ProfileDir:  opts.ProfileDir,
				DataDir:     opts.DataDir,
				Prefs:       prefs,
				Plugins:     infos,
				Proxy:       opts.Proxy,
				DevTools:    opts.Devtools,
				ExtraArgs:   strings.Fields(opts.ExtraArgs),
				KillCommand: opts.KillCommand,
				Dialer:      dialer,
				Bus:         bus,
				Metrics:     sessionMetrics,
				Logger:      logging.GetLogger("session"),
			}, logging.GetLogger("host"))
			if err != nil {
				logger.Error("Invalid session options", "error", err)
				os.Exit(1)
			}

			ctx := context.Background()
			if runErr := runner.Run(ctx); runErr != nil {
				logger.Error("Session startup failed", "error", runErr)
				runner.Stop()
				os.Exit(1)
			}

			if opts.Watch {
				watcher = watch.New(sourceDirs, func() {
					if _, reloadErr := runner.ReloadAll(ctx); reloadErr != nil {
						logger.Warn("Reload skipped", "error", reloadErr)
					}
				}, logging.GetLogger("watch"),
					watch.WithDebounce(time.Duration(opts.WatchDebounceMs)*time.Millisecond))
				if watchErr := watcher.Start(); watchErr != nil {
					logger.Warn("Failed to start source watcher, live reload disabled", "error", watchErr)
					watcher = nil
				}
			}

			// Block until the host exits on its own; Ctrl-C lands in OnStop.
			<-runner.Done()
			exitCode := process.ExitCode(runner.ExitErr())
			bus.Publish(events.ProcessExitedEvent{
				SessionID: runner.SessionID(),
				ExitCode:  exitCode,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
			logger.Info("Host process exited", "exit_code", exitCode)

			// The host went away on its own; tear down and leave.
			if !stopping.Load() {
				if watcher != nil {
					_ = watcher.Stop()
				}
				runner.Stop()
				sessionMetrics.Close()
				os.Exit(exitCode)
			}
		})

		hooks.OnStop(func() {
			stopping.Store(true)
			logger.Info("Shutting down session")
			if watcher != nil {
				_ = watcher.Stop()
			}
			if runner != nil {
				runner.Stop()
			}
			if sessionMetrics != nil {
				sessionMetrics.Close()
			}
			select {
			case <-runDone:
			case <-time.After(10 * time.Second):
			}
		})
	})

	cli.Root().Use = "extrun"
	cli.Root().Short = "Run a host application with in-development plugins"
	cli.Root().AddCommand(cmd.CreateProfileCmd())
	cli.Root().AddCommand(cmd.CreateReloadCmd())
	cli.Root().AddCommand(cmd.CreateUpdateCmd())
	cli.Root().AddCommand(cmd.CreateVersionCmd())

	cli.Run()
}

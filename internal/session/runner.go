// Package session orchestrates a development session: prepare the run
// profile, launch the host with debug instrumentation, install plugins
// into the running instance, and serve reload requests until teardown.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/extrun/extrun/internal/events"
	"github.com/extrun/extrun/internal/install"
	"github.com/extrun/extrun/internal/metrics"
	"github.com/extrun/extrun/internal/process"
	"github.com/extrun/extrun/internal/profile"
	"github.com/extrun/extrun/internal/reload"
	"github.com/extrun/extrun/internal/remote"
)

// PluginInfo declares one plugin for the run. Immutable for the run's
// lifetime once the runner has resolved SourceDir to an absolute path.
type PluginInfo struct {
	ID        string
	SourceDir string
	Name      string
}

// Options configure a run.
type Options struct {
	Binary      string
	ProfileDir  string
	DataDir     string
	Prefs       map[string]any
	Plugins     []PluginInfo
	Proxy       bool
	DevTools    bool
	ExtraArgs   []string
	KillCommand string

	Dialer  remote.Dialer
	Bus     *events.Bus      // optional
	Metrics *metrics.Metrics // optional
	Logger  *slog.Logger
}

// Runner sequences profile preparation, process supervision and plugin
// installation, and exposes reload and teardown to the caller. It is the
// sole owner of the process handle and the control-channel connection.
type Runner struct {
	opts      Options
	sessionID string
	plugins   []install.Plugin
	logger    *slog.Logger

	profileMgr *profile.Manager
	installer  *install.Installer
	supervisor *process.Supervisor

	mu          sync.Mutex
	state       State
	client      remote.Client
	coordinator *reload.Coordinator
}

// NewRunner validates options and builds a runner. Configuration problems
// surface here, before any side effect.
func NewRunner(opts Options, hostLogger *slog.Logger) (*Runner, error) {
	if opts.Binary == "" {
		return nil, newError(ErrCodeConfig, "host binary is required", nil)
	}
	if _, err := exec.LookPath(opts.Binary); err != nil {
		return nil, newError(ErrCodeConfig, fmt.Sprintf("host binary %q not found", opts.Binary), err)
	}
	if opts.ProfileDir == "" {
		return nil, newError(ErrCodeConfig, "profile directory is required", nil)
	}
	if opts.DataDir == "" {
		opts.DataDir = opts.ProfileDir
	}
	if opts.Dialer == nil {
		return nil, newError(ErrCodeConfig, "remote-control dialer is required", nil)
	}

	plugins := make([]install.Plugin, 0, len(opts.Plugins))
	seen := make(map[string]bool, len(opts.Plugins))
	for _, p := range opts.Plugins {
		if p.ID == "" || p.SourceDir == "" {
			return nil, newError(ErrCodeConfig, "plugins need both id and source directory", nil)
		}
		if seen[p.ID] {
			return nil, newError(ErrCodeConfig, fmt.Sprintf("duplicate plugin id %q", p.ID), nil)
		}
		seen[p.ID] = true

		abs, err := filepath.Abs(p.SourceDir)
		if err != nil {
			return nil, newError(ErrCodeConfig,
				fmt.Sprintf("source directory %q is not resolvable", p.SourceDir), err)
		}
		plugins = append(plugins, install.Plugin{ID: p.ID, SourceDir: abs, Name: p.Name})
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner{
		opts:       opts,
		sessionID:  uuid.NewString(),
		plugins:    plugins,
		logger:     logger,
		profileMgr: profile.NewManager(logger),
		installer:  install.NewInstaller(logger),
		supervisor: process.NewSupervisor(opts.Binary, opts.Dialer, opts.KillCommand, logger, hostLogger),
		state:      StateNotStarted,
	}
	return r, nil
}

// SessionID returns the unique id stamped on this run's logs and events.
func (r *Runner) SessionID() string { return r.sessionID }

// State returns the current session state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Run executes the startup sequence: profile preparation (including proxy
// installs in proxy mode), process spawn plus control-channel connect,
// then temporary installs. On return the session is Ready. The caller owns
// teardown via Stop, also on error.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.transition(StateNotStarted, StateProfilePrepared, func() error {
		if err := r.profileMgr.Prepare(r.opts.ProfileDir, r.opts.Prefs); err != nil {
			return newError(ErrCodeConfig, "profile preparation failed", err)
		}
		if r.opts.Proxy {
			// Proxy plugins are installed by mutating profile state, before
			// the host ever starts.
			if err := r.installer.InstallProxy(r.profileAbs(), r.plugins); err != nil {
				return newError(ErrCodeInstall, "proxy install failed", err)
			}
			r.countInstalls("proxy")
		}
		return nil
	}); err != nil {
		return err
	}

	var result *process.StartResult
	if err := r.transition(StateProfilePrepared, StateProcessStarted, func() error {
		var startErr error
		result, startErr = r.supervisor.Start(ctx, process.StartOptions{
			ProfileDir: r.opts.ProfileDir,
			DataDir:    r.opts.DataDir,
			DevTools:   r.opts.DevTools,
			ExtraArgs:  r.opts.ExtraArgs,
		})
		if startErr != nil {
			return newError(ErrCodeProcess, "host startup failed", startErr)
		}
		return nil
	}); err != nil {
		// A concurrent Stop can abort the transition after the channel is
		// already live; the connection must not leak.
		if result != nil && result.Client != nil {
			_ = result.Client.Close()
		}
		return err
	}

	r.mu.Lock()
	if r.state == StateStopped {
		r.mu.Unlock()
		_ = result.Client.Close()
		return newError(ErrCodeInvalidState, "session was stopped during startup", nil)
	}
	r.client = result.Client
	r.mu.Unlock()

	r.publish(events.SessionStartedEvent{
		SessionID: r.sessionID, PID: result.PID, Port: result.Port, Timestamp: now(),
	})
	if r.opts.Metrics != nil {
		r.opts.Metrics.SessionUp.Set(1)
	}

	if !r.opts.Proxy {
		if err := r.transition(StateProcessStarted, StatePluginsInstalled, func() error {
			if err := r.installer.InstallTemporary(ctx, result.Client, r.plugins); err != nil {
				return newError(ErrCodeInstall, "temporary install failed", err)
			}
			r.countInstalls("temporary")
			return nil
		}); err != nil {
			return err
		}
	}

	r.mu.Lock()
	if r.state == StateStopped {
		r.mu.Unlock()
		return newError(ErrCodeInvalidState, "session was stopped during startup", nil)
	}
	if r.opts.Proxy {
		r.coordinator = reload.NewProxyCoordinator(r.plugins,
			reload.NewSideChannel(r.opts.Binary, r.profileAbs(), r.logger), r.logger)
	} else {
		r.coordinator = reload.NewCoordinator(r.plugins, r.installer, result.Client, r.logger)
	}
	r.state = StateReady
	r.mu.Unlock()

	r.publish(events.SessionReadyEvent{
		SessionID: r.sessionID, PluginCount: len(r.plugins), ProxyMode: r.opts.Proxy, Timestamp: now(),
	})
	r.logger.Info("Session ready", "session_id", r.sessionID, "plugins", len(r.plugins), "proxy", r.opts.Proxy)
	return nil
}

// ReloadAll re-applies changed plugin code. Valid only while Ready;
// per-plugin failures come back as results, not errors.
func (r *Runner) ReloadAll(ctx context.Context) ([]reload.Result, error) {
	r.mu.Lock()
	if r.state != StateReady {
		state := r.state
		r.mu.Unlock()
		return nil, newError(ErrCodeInvalidState,
			fmt.Sprintf("cannot reload in state %q", state), nil)
	}
	coordinator := r.coordinator
	r.mu.Unlock()

	results := coordinator.ReloadAll(ctx)

	failed := 0
	for _, res := range results {
		if r.opts.Metrics != nil {
			r.opts.Metrics.ReloadsTotal.Inc()
		}
		if res.Err != nil {
			failed++
			if r.opts.Metrics != nil {
				r.opts.Metrics.ReloadFailures.Inc()
			}
		}
	}

	r.publish(events.ReloadCompletedEvent{
		SessionID: r.sessionID, Total: len(results), Failed: failed, Timestamp: now(),
	})
	return results, nil
}

// Done is closed when the host process exits on its own. Blocks forever if
// the process was never started.
func (r *Runner) Done() <-chan struct{} {
	return r.supervisor.Done()
}

// ExitErr returns the host process wait result. Valid once Done is closed.
func (r *Runner) ExitErr() error {
	return r.supervisor.ExitErr()
}

// Stop tears the session down: close the control channel, terminate the
// host, always run the forced-kill fallback. Safe to invoke in any state,
// idempotent, and never raises.
func (r *Runner) Stop() {
	r.mu.Lock()
	alreadyStopped := r.state == StateStopped
	client := r.client
	r.client = nil
	r.state = StateStopped
	r.mu.Unlock()

	if client != nil {
		if err := client.Close(); err != nil {
			r.logger.Warn("Failed to close control channel", "error", err)
		}
	}

	r.supervisor.Stop()

	if r.opts.Metrics != nil {
		r.opts.Metrics.SessionUp.Set(0)
	}
	if !alreadyStopped {
		r.publish(events.SessionStoppedEvent{SessionID: r.sessionID, Timestamp: now()})
		r.logger.Info("Session stopped", "session_id", r.sessionID)
	}
}

// transition runs fn and advances from one state to the next; any other
// current state is a sequencing bug surfaced as an invalid-state error.
func (r *Runner) transition(from, to State, fn func() error) error {
	r.mu.Lock()
	if r.state != from {
		state := r.state
		r.mu.Unlock()
		return newError(ErrCodeInvalidState,
			fmt.Sprintf("expected state %q, in %q", from, state), nil)
	}
	r.mu.Unlock()

	if err := fn(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateStopped {
		// Torn down concurrently; stay stopped.
		return newError(ErrCodeInvalidState, "session was stopped during startup", nil)
	}
	r.state = to
	return nil
}

func (r *Runner) countInstalls(strategy string) {
	if r.opts.Metrics != nil {
		for range r.plugins {
			r.opts.Metrics.InstallsTotal.WithLabelValues(strategy).Inc()
		}
	}
	for _, p := range r.plugins {
		addonID, _ := r.installer.AddonID(p.SourceDir)
		r.publish(events.PluginInstalledEvent{
			SessionID: r.sessionID, PluginID: p.ID, AddonID: addonID,
			SourceDir: p.SourceDir, Proxy: strategy == "proxy", Timestamp: now(),
		})
	}
}

func (r *Runner) publish(ev events.Event) {
	if r.opts.Bus != nil {
		r.opts.Bus.Publish(ev)
	}
}

func (r *Runner) profileAbs() string {
	abs, err := filepath.Abs(r.opts.ProfileDir)
	if err != nil {
		return r.opts.ProfileDir
	}
	return abs
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

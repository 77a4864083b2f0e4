// Package reload re-applies changed plugin code to a running host
// instance, using the strategy matching how the plugins were installed.
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/extrun/extrun/internal/install"
	"github.com/extrun/extrun/internal/remote"
	"github.com/extrun/extrun/internal/version"
)

// defaultSettleDelay is the pause enforced before each proxy-mode
// invocation; overlapping invocations destabilize the host.
const defaultSettleDelay = 2 * time.Second

// Result is the per-plugin outcome of a reload batch. Err is nil on
// success; a failed plugin never aborts the batch.
type Result struct {
	SourceDir string
	Err       error
}

// Coordinator reloads installed plugins in declared order, sequentially.
type Coordinator struct {
	proxyMode bool
	plugins   []install.Plugin
	installer *install.Installer
	client    remote.Client
	side      *SideChannel
	settle    time.Duration
	logger    *slog.Logger
}

// NewCoordinator creates a coordinator for temporary-mode reloads over the
// given client.
func NewCoordinator(plugins []install.Plugin, installer *install.Installer, client remote.Client, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		plugins:   plugins,
		installer: installer,
		client:    client,
		logger:    logger,
	}
}

// NewProxyCoordinator creates a coordinator for proxy-mode reloads through
// the side channel.
func NewProxyCoordinator(plugins []install.Plugin, side *SideChannel, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		proxyMode: true,
		plugins:   plugins,
		side:      side,
		settle:    defaultSettleDelay,
		logger:    logger,
	}
}

// ReloadAll reloads every plugin and returns one result per input plugin,
// in input order. Per-plugin failures are captured as data, never raised.
func (c *Coordinator) ReloadAll(ctx context.Context) []Result {
	if c.proxyMode {
		return c.reloadProxy(ctx)
	}
	return c.reloadTemporary(ctx)
}

func (c *Coordinator) reloadTemporary(ctx context.Context) []Result {
	results := make([]Result, 0, len(c.plugins))
	for _, plugin := range c.plugins {
		id, ok := c.installer.AddonID(plugin.SourceDir)
		if !ok {
			results = append(results, Result{
				SourceDir: plugin.SourceDir,
				Err:       fmt.Errorf("no recorded addon id for %s", plugin.SourceDir),
			})
			continue
		}

		if err := c.client.ReloadAddon(ctx, id); err != nil {
			c.logger.Warn("Plugin reload failed", "plugin", plugin.ID, "addon_id", id, "error", err)
			results = append(results, Result{SourceDir: plugin.SourceDir, Err: err})
			continue
		}

		c.logger.Info("Plugin reloaded", "plugin", plugin.ID, "addon_id", id)
		results = append(results, Result{SourceDir: plugin.SourceDir})
	}
	return results
}

func (c *Coordinator) reloadProxy(ctx context.Context) []Result {
	stamp := fmt.Sprintf("%s-%d", version.String(), time.Now().Unix())

	results := make([]Result, 0, len(c.plugins))
	for _, plugin := range c.plugins {
		if err := c.settleDown(ctx); err != nil {
			results = append(results, Result{SourceDir: plugin.SourceDir, Err: err})
			continue
		}

		payload := NewPayload(plugin.ID, plugin.Name, stamp)
		if err := c.side.Send(ctx, payload); err != nil {
			c.logger.Warn("Plugin reload failed", "plugin", plugin.ID, "error", err)
			results = append(results, Result{SourceDir: plugin.SourceDir, Err: err})
			continue
		}

		c.logger.Info("Plugin reloaded", "plugin", plugin.ID)
		results = append(results, Result{SourceDir: plugin.SourceDir})
	}
	return results
}

// settleDown waits out the settling delay before an invocation.
func (c *Coordinator) settleDown(ctx context.Context) error {
	if c.settle <= 0 {
		return nil
	}
	select {
	case <-time.After(c.settle):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

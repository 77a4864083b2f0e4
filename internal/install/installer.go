// Package install loads in-development plugins into the host using one of
// two strategies, selected once per run and never mixed: temporary install
// over the remote-control channel, or proxy install through filesystem
// pointer files plus an activation-state patch.
package install

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/extrun/extrun/internal/remote"
)

// Plugin is one in-development plugin. SourceDir has been resolved to an
// absolute path before it gets here; both fields are immutable for the
// run's lifetime.
type Plugin struct {
	ID        string
	SourceDir string
	Name      string
}

// Installer installs plugins and records the host-assigned addon ids for
// temporary installs, keyed by source directory.
type Installer struct {
	logger *slog.Logger

	mu      sync.RWMutex
	mapping map[string]string
}

// NewInstaller creates an installer.
func NewInstaller(logger *slog.Logger) *Installer {
	return &Installer{
		logger:  logger,
		mapping: make(map[string]string),
	}
}

// InstallTemporary installs plugins through the remote-control channel,
// strictly sequentially and in declared order; the channel is not assumed
// safe for concurrent use. A missing or empty assigned id aborts the run:
// an unusable plugin defeats the purpose of the session.
func (i *Installer) InstallTemporary(ctx context.Context, client remote.Client, plugins []Plugin) error {
	for _, plugin := range plugins {
		id, err := client.InstallTemporaryAddon(ctx, plugin.SourceDir)
		if err != nil {
			return newError(ErrCodeInstallCall,
				fmt.Sprintf("temporary install of %q failed", plugin.ID), err)
		}
		if id == "" {
			return newError(ErrCodeNoAddonID,
				fmt.Sprintf("host assigned no id for plugin %q (%s)", plugin.ID, plugin.SourceDir), nil)
		}

		i.mu.Lock()
		i.mapping[plugin.SourceDir] = id
		i.mu.Unlock()

		i.logger.Info("Plugin installed", "plugin", plugin.ID, "addon_id", id, "source", plugin.SourceDir)
	}
	return nil
}

// AddonID resolves the host-assigned id recorded for a source directory.
func (i *Installer) AddonID(sourceDir string) (string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	id, ok := i.mapping[sourceDir]
	return id, ok
}

package install

import (
	"fmt"
	"os"
	"path/filepath"
)

// extensionsDirName is the profile subdirectory the host scans for
// installed extensions.
const extensionsDirName = "extensions"

// InstallProxy points the host at each plugin's build directory by writing
// a pointer file named by extension id into the profile's extensions
// directory, removing any stale packaged artifact with the same id, and
// enabling the extension in the persisted activation state when present.
func (i *Installer) InstallProxy(profileDir string, plugins []Plugin) error {
	extDir := filepath.Join(profileDir, extensionsDirName)
	if err := os.MkdirAll(extDir, 0o755); err != nil {
		return newError(ErrCodePointerWrite, "failed to create extensions directory", err)
	}

	for _, plugin := range plugins {
		pointerPath := filepath.Join(extDir, plugin.ID)
		if err := os.WriteFile(pointerPath, []byte(plugin.SourceDir), 0o644); err != nil {
			return newError(ErrCodePointerWrite,
				fmt.Sprintf("failed to write pointer file for %q", plugin.ID), err)
		}

		// A stale packaged artifact with the same id silently overrides the
		// pointer file if left in place.
		packaged := pointerPath + ".xpi"
		if err := os.Remove(packaged); err == nil {
			i.logger.Info("Removed stale packaged artifact", "plugin", plugin.ID, "path", packaged)
		} else if !os.IsNotExist(err) {
			return newError(ErrCodePointerWrite,
				fmt.Sprintf("failed to remove packaged artifact for %q", plugin.ID), err)
		}

		if err := i.patchActivationState(profileDir, plugin.ID); err != nil {
			return err
		}

		i.logger.Info("Plugin proxied", "plugin", plugin.ID, "source", plugin.SourceDir)
	}
	return nil
}

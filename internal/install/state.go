package install

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// activationFileName is the host's persisted record of installed
// extensions.
const activationFileName = "extensions.json"

// patchActivationState flips the entry matching id to active and enabled
// if it is currently inactive or disabled. Every other entry and every
// unrelated field passes through unchanged. A missing activation file is
// the first-run case and a no-op.
func (i *Installer) patchActivationState(profileDir, id string) error {
	path := filepath.Join(profileDir, activationFileName)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		i.logger.Debug("No activation state yet, skipping patch", "plugin", id)
		return nil
	}
	if err != nil {
		return newError(ErrCodeStatePatch, "failed to read activation state", err)
	}

	var doc map[string]any
	if unmarshalErr := json.Unmarshal(data, &doc); unmarshalErr != nil {
		return newError(ErrCodeStatePatch, "failed to parse activation state", unmarshalErr)
	}

	addons, ok := doc["addons"].([]any)
	if !ok {
		i.logger.Debug("Activation state has no addons array, skipping patch", "plugin", id)
		return nil
	}

	changed := false
	for _, raw := range addons {
		entry, entryOk := raw.(map[string]any)
		if !entryOk {
			continue
		}
		if entry["id"] != id {
			continue
		}
		active, _ := entry["active"].(bool)
		disabled, _ := entry["userDisabled"].(bool)
		if active && !disabled {
			break
		}
		entry["active"] = true
		entry["userDisabled"] = false
		changed = true
		break
	}

	if !changed {
		return nil
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return newError(ErrCodeStatePatch, "failed to encode activation state", err)
	}
	if writeErr := os.WriteFile(path, out, 0o644); writeErr != nil {
		return newError(ErrCodeStatePatch, "failed to write activation state", writeErr)
	}

	i.logger.Info("Activation state patched", "plugin", id, "path", path)
	return nil
}

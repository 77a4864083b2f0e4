package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// PluginSpec declares one in-development plugin in the manifest file.
// Order in the file is the order plugins are installed and reloaded in.
type PluginSpec struct {
	ID        string `toml:"id"`
	SourceDir string `toml:"source_dir"`
	Name      string `toml:"name,omitempty"`
}

// manifest represents the plugin sections of the extrun config file.
type manifest struct {
	Plugins []PluginSpec   `toml:"plugins"`
	Prefs   map[string]any `toml:"prefs"`
}

// LoadManifest reads the plugin list and preference overrides from the
// config file. A missing file yields an empty manifest, not an error.
func LoadManifest(configPath string) ([]PluginSpec, map[string]any, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, nil, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config: %w", err)
	}

	var m manifest
	if unmarshalErr := toml.Unmarshal(data, &m); unmarshalErr != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", unmarshalErr)
	}

	seen := make(map[string]bool, len(m.Plugins))
	for _, p := range m.Plugins {
		if p.ID == "" || p.SourceDir == "" {
			return nil, nil, fmt.Errorf("plugin entries need both id and source_dir")
		}
		if seen[p.ID] {
			return nil, nil, fmt.Errorf("duplicate plugin id %q", p.ID)
		}
		seen[p.ID] = true
	}

	return m.Plugins, m.Prefs, nil
}

// Package profile prepares the host's run profile directory: it merges
// preference layers into the profile's user.js so every session starts
// from a known, debuggable state.
package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// prefsFileName is the preference file the host reads at startup.
const prefsFileName = "user.js"

// Manager merges and persists preference state into a run profile directory.
type Manager struct {
	logger *slog.Logger
}

// NewManager creates a profile manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{logger: logger}
}

// Prepare writes the merged preference file into profileDir, creating the
// directory if needed. Absence of a previous preference file is the normal
// first-run case. Repeated calls with unchanged inputs converge to
// byte-identical output after the first strip pass.
func (m *Manager) Prepare(profileDir string, overrides map[string]any) error {
	if profileDir == "" {
		return fmt.Errorf("profile directory is required")
	}
	abs, err := filepath.Abs(profileDir)
	if err != nil {
		return fmt.Errorf("profile directory %q is not resolvable: %w", profileDir, err)
	}

	if mkErr := os.MkdirAll(abs, 0o755); mkErr != nil {
		return fmt.Errorf("failed to create profile directory: %w", mkErr)
	}

	prefsPath := filepath.Join(abs, prefsFileName)

	var existing []Pref
	if data, readErr := os.ReadFile(prefsPath); readErr == nil {
		existing = ParsePrefs(string(data))
	} else if !os.IsNotExist(readErr) {
		return fmt.Errorf("failed to read existing preferences: %w", readErr)
	}

	merged, err := MergePrefs(existing, overrides)
	if err != nil {
		return err
	}

	if writeErr := os.WriteFile(prefsPath, []byte(FormatPrefs(merged)), 0o644); writeErr != nil {
		return fmt.Errorf("failed to write preferences: %w", writeErr)
	}

	m.logger.Info("Profile prepared", "path", abs, "prefs", len(merged), "overrides", len(overrides))
	return nil
}

// PrefsPath returns the preference file path inside profileDir.
func PrefsPath(profileDir string) string {
	return filepath.Join(profileDir, prefsFileName)
}

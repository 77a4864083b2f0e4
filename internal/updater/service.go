// Package updater checks for and applies new extrun releases.
package updater

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/creativeprojects/go-selfupdate"

	"github.com/extrun/extrun/internal/version"
)

// UpdateInfo describes an available release.
type UpdateInfo struct {
	CurrentVersion  string    `json:"current_version"`
	LatestVersion   string    `json:"latest_version"`
	ReleaseNotes    string    `json:"release_notes"`
	ReleaseURL      string    `json:"release_url"`
	PublishedAt     time.Time `json:"published_at"`
	UpdateAvailable bool      `json:"update_available"`
}

// Service checks the release repository and replaces the running binary.
type Service struct {
	repository selfupdate.Repository
	updater    *selfupdate.Updater
	logger     *slog.Logger

	latestRelease *selfupdate.Release
}

// NewService creates an updater against the given GitHub repository slug.
func NewService(repository string, logger *slog.Logger) (*Service, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub source: %w", err)
	}

	updater, err := selfupdate.NewUpdater(selfupdate.Config{Source: source})
	if err != nil {
		return nil, fmt.Errorf("failed to create updater: %w", err)
	}

	return &Service{
		repository: selfupdate.ParseSlug(repository),
		updater:    updater,
		logger:     logger,
	}, nil
}

// CheckForUpdate queries the repository for the latest release and compares
// it against the current version, without downloading.
func (s *Service) CheckForUpdate(ctx context.Context) (*UpdateInfo, error) {
	currentVersion := version.Version

	release, found, err := s.updater.DetectLatest(ctx, s.repository)
	if err != nil {
		return nil, newError(ErrCodeCheckFailed, "failed to check for updates", err)
	}
	if !found {
		return nil, newError(ErrCodeNotFound, "repository not found or has no releases", nil)
	}

	// A dev build is always considered outdated
	isNewer := currentVersion == "dev" || release.GreaterThan(currentVersion)
	if !isNewer {
		return &UpdateInfo{
			CurrentVersion:  currentVersion,
			LatestVersion:   release.Version(),
			UpdateAvailable: false,
		}, nil
	}

	s.latestRelease = release
	return &UpdateInfo{
		CurrentVersion:  currentVersion,
		LatestVersion:   release.Version(),
		ReleaseNotes:    release.ReleaseNotes,
		ReleaseURL:      release.URL,
		PublishedAt:     release.PublishedAt,
		UpdateAvailable: true,
	}, nil
}

// ApplyUpdate downloads the latest release and replaces the running binary.
func (s *Service) ApplyUpdate(ctx context.Context) error {
	if s.latestRelease == nil {
		info, err := s.CheckForUpdate(ctx)
		if err != nil {
			return err
		}
		if !info.UpdateAvailable {
			return newError(ErrCodeNoUpdate, "no update available", nil)
		}
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return newError(ErrCodeApplyFailed, "failed to get executable path", err)
	}

	if updateErr := s.updater.UpdateTo(ctx, s.latestRelease, exe); updateErr != nil {
		return newError(ErrCodeApplyFailed, "failed to apply update", updateErr)
	}

	s.logger.Info("Update applied", "version", s.latestRelease.Version())
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"

	"sightline/internal/client"
	"sightline/internal/config"
	"sightline/internal/settings"
)

// openSettings opens the per-user settings store.
func openSettings() (*settings.Store, error) {
	dir, err := settings.DefaultDir()
	if err != nil {
		return nil, err
	}
	return settings.Open(dir)
}

// resolveBaseURL returns the backend base URL: the --base-url flag wins and
// is persisted for future sessions; otherwise the persisted value is used.
func (a *app) resolveBaseURL(ctx context.Context, store *settings.Store) (string, error) {
	if a.baseURL != "" {
		if err := store.SetBackendURL(ctx, a.baseURL); err != nil {
			return "", err
		}
		return a.baseURL, nil
	}

	url, err := store.BackendURL(ctx)
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", errors.New("no backend URL configured; pass --base-url once to set it")
	}
	return url, nil
}

// newBackendClient builds an analysis client from the resolved base URL and
// the configured timeouts.
func (a *app) newBackendClient(ctx context.Context, cfg *config.Config) (*client.Client, error) {
	store, err := openSettings()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	url, err := a.resolveBaseURL(ctx, store)
	if err != nil {
		return nil, err
	}

	return client.New(url, client.Options{
		FrameTimeout: cfg.FrameTimeout(),
		VideoTimeout: cfg.VideoTimeout(),
		Logger:       a.logger,
	}), nil
}

// confidencePercent renders a 0..1 confidence as a short percentage.
func confidencePercent(confidence float64) string {
	return fmt.Sprintf("%.0f%%", confidence*100)
}

// Package config aggregates per-component configuration for the dashboard
// data layer.
package config

import (
	"os"
	"strconv"
	"time"

	"rollup-dashboard/internal/api"
	"rollup-dashboard/internal/cache"
	"rollup-dashboard/internal/coordinator"
	"rollup-dashboard/internal/server"
)

// Config holds all application configuration.
type Config struct {
	Server      server.Config      `json:"server"`
	API         api.Config         `json:"api"`
	Cache       cache.Config       `json:"cache"`
	Coordinator coordinator.Config `json:"coordinator"`

	// PrefsDir is where user preferences persist. Empty resolves to
	// ~/.rollup-dashboard.
	PrefsDir string `json:"prefsDir"`

	// MockBackend serves generated data instead of calling upstream.
	MockBackend bool `json:"mockBackend"`
}

// DefaultConfig returns default configuration for the entire application,
// with environment overrides applied.
func DefaultConfig() Config {
	cfg := Config{
		Server:      server.DefaultConfig(),
		API:         api.DefaultConfig(),
		Cache:       cache.DefaultConfig(),
		Coordinator: coordinator.DefaultConfig(),
	}

	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if baseURL := os.Getenv("BACKEND_URL"); baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	if dir := os.Getenv("PREFS_DIR"); dir != "" {
		cfg.PrefsDir = dir
	}
	if mock := os.Getenv("MOCK_BACKEND"); mock != "" {
		if v, err := strconv.ParseBool(mock); err == nil {
			cfg.MockBackend = v
		}
	}
	if interval := os.Getenv("REFRESH_INTERVAL_SECONDS"); interval != "" {
		if v, err := strconv.Atoi(interval); err == nil && v > 0 {
			cfg.Coordinator.RefreshInterval = time.Duration(v) * time.Second
		}
	}

	return cfg
}

// Package prefs persists the user's dashboard preferences. The only
// persisted value is the refresh-rate choice, validated against an
// allow-list on load so a corrupt or hand-edited file falls back to the
// default instead of poisoning the poll loop.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Allowed refresh rates in seconds, mirroring the UI selector.
var allowedRefreshRates = []int{5, 10, 15, 30, 60, 120}

// DefaultRefreshRate is used when no valid preference is stored.
const DefaultRefreshRate = 30

const fileName = "preferences.json"

type payload struct {
	RefreshRateSeconds int `json:"refreshRateSeconds"`
}

// Store reads and writes the preference file.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. An empty dir resolves to
// ~/.rollup-dashboard.
func NewStore(dir string) *Store {
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".rollup-dashboard")
		} else {
			dir = ".rollup-dashboard"
		}
	}
	return &Store{dir: dir}
}

// IsAllowedRefreshRate reports whether seconds is a selectable rate.
func IsAllowedRefreshRate(seconds int) bool {
	for _, allowed := range allowedRefreshRates {
		if seconds == allowed {
			return true
		}
	}
	return false
}

// AllowedRefreshRates returns the selectable rates.
func AllowedRefreshRates() []int {
	rates := make([]int, len(allowedRefreshRates))
	copy(rates, allowedRefreshRates)
	return rates
}

// LoadRefreshRate returns the stored refresh rate, falling back to the
// default when the file is absent, unreadable, or holds a value outside the
// allow-list.
func (s *Store) LoadRefreshRate() int {
	data, err := os.ReadFile(filepath.Join(s.dir, fileName))
	if err != nil {
		return DefaultRefreshRate
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return DefaultRefreshRate
	}
	if !IsAllowedRefreshRate(p.RefreshRateSeconds) {
		return DefaultRefreshRate
	}
	return p.RefreshRateSeconds
}

// SaveRefreshRate persists an allowed refresh rate atomically via temp file
// and rename. Values outside the allow-list are rejected.
func (s *Store) SaveRefreshRate(seconds int) error {
	if !IsAllowedRefreshRate(seconds) {
		return &InvalidRateError{Seconds: seconds}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(payload{RefreshRateSeconds: seconds}, "", "  ")
	if err != nil {
		return err
	}

	target := filepath.Join(s.dir, fileName)
	tmp, err := os.CreateTemp(s.dir, fileName+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, target)
}

// InvalidRateError reports a refresh rate outside the allow-list.
type InvalidRateError struct {
	Seconds int
}

func (e *InvalidRateError) Error() string {
	return fmt.Sprintf("refresh rate not allowed: %ds", e.Seconds)
}

package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFallsBackWhenAbsent(t *testing.T) {
	store := NewStore(t.TempDir())
	assert.Equal(t, DefaultRefreshRate, store.LoadRefreshRate())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.SaveRefreshRate(60))
	assert.Equal(t, 60, store.LoadRefreshRate())
}

func TestSaveRejectsDisallowedRate(t *testing.T) {
	store := NewStore(t.TempDir())
	err := store.SaveRefreshRate(7)
	var invalid *InvalidRateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 7, invalid.Seconds)
}

func TestLoadFallsBackOnDisallowedStoredValue(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "preferences.json"),
		[]byte(`{"refreshRateSeconds": 2}`), 0o644))

	store := NewStore(dir)
	assert.Equal(t, DefaultRefreshRate, store.LoadRefreshRate())
}

func TestLoadFallsBackOnCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "preferences.json"),
		[]byte(`{not json`), 0o644))

	store := NewStore(dir)
	assert.Equal(t, DefaultRefreshRate, store.LoadRefreshRate())
}

func TestAllowedRates(t *testing.T) {
	assert.True(t, IsAllowedRefreshRate(30))
	assert.False(t, IsAllowedRefreshRate(0))
	assert.False(t, IsAllowedRefreshRate(-5))
	assert.Contains(t, AllowedRefreshRates(), DefaultRefreshRate)
}

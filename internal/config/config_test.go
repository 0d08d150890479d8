package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.Server.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Server.HTTPTimeout)
	assert.Equal(t, 20, cfg.Feed.PageLimit)
	assert.InDelta(t, 0.85, cfg.Feed.FallbackConfidence, 1e-9)
	assert.Equal(t, "time", cfg.Feed.DefaultSort)
	assert.Equal(t, 3, cfg.Lazy.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Layout.ResizeDebounce)
	assert.NotEmpty(t, cfg.Layout.Breakpoints)
	assert.Equal(t, 5, cfg.Layout.Breakpoints[0].Columns)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[server]
base_url = "https://cards.example.com"
http_timeout = "10s"

[feed]
page_limit = 50
fallback_confidence = 0.9

[lazy]
max_retries = 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://cards.example.com", cfg.Server.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Server.HTTPTimeout)
	assert.Equal(t, 50, cfg.Feed.PageLimit)
	assert.InDelta(t, 0.9, cfg.Feed.FallbackConfidence, 1e-9)
	assert.Equal(t, 5, cfg.Lazy.MaxRetries)

	// Untouched sections keep defaults
	assert.Equal(t, 250*time.Millisecond, cfg.Layout.ResizeDebounce)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "config.toml")

	orig := defaultConfig()
	orig.Server.BaseURL = "https://roundtrip.example.com"
	require.NoError(t, Save(orig, path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://roundtrip.example.com", cfg.Server.BaseURL)
	assert.Equal(t, orig.Feed.PageLimit, cfg.Feed.PageLimit)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x.db"), expandPath("~/x.db"))
	assert.Equal(t, "/tmp/x.db", expandPath("/tmp/x.db"))
	assert.Equal(t, "", expandPath(""))
}

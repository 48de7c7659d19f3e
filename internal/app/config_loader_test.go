package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/ytfetch/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
download:
  output_dir: /data/videos
  default_quality: "720"
  fallback_format: "22"
  timeout: 30m
tools:
  extra_args: "--limit-rate 2M"
cookies:
  enabled: true
  browser: chrome
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/data/videos", cfg.Download.OutputDir)
	assert.Equal(t, domain.Quality720, cfg.Download.DefaultQuality)
	assert.Equal(t, "22", cfg.Download.FallbackFormat)
	assert.Equal(t, 30*time.Minute, cfg.Download.Timeout)
	assert.Equal(t, "--limit-rate 2M", cfg.Tools.ExtraArgs)
	assert.True(t, cfg.Cookies.Enabled)
	assert.Equal(t, "chrome", cfg.Cookies.Browser)

	// Untouched keys keep their defaults.
	assert.Equal(t, 15, cfg.Download.Retries)
	assert.Equal(t, "yt-dlp", cfg.Tools.YTDLPBinary)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "download:\n  output_dir: /data/videos\n")
	t.Setenv("YTFETCH_DOWNLOAD_OUTPUT_DIR", "/mnt/media")
	t.Setenv("YTFETCH_COOKIES_BROWSER", "edge")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/media", cfg.Download.OutputDir)
	assert.Equal(t, "edge", cfg.Cookies.Browser)
}

func TestLoadConfig_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	path := writeConfig(t, `
download:
  output_dir: ~/Movies
history:
  database_path: $HOME/.ytfetch/test.db
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Movies"), cfg.Download.OutputDir)
	assert.Equal(t, filepath.Join(home, ".ytfetch", "test.db"), filepath.Clean(cfg.History.DatabasePath))
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad port", "server:\n  port: 70000\n", "invalid server port"},
		{"bad quality", "download:\n  default_quality: 4k\n", "invalid default quality"},
		{"empty fallback", "download:\n  fallback_format: \"\"\n", "fallback format"},
		{"no fragments", "download:\n  concurrent_fragments: 0\n", "concurrent fragments"},
		{"negative timeout", "download:\n  timeout: -1s\n", "timeout"},
		{"bad browser", "cookies:\n  browser: netscape\n", "unsupported cookie browser"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Download.OutputDir = "/srv/videos"
	cfg.Cookies.Browser = "firefox"

	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/videos", loaded.Download.OutputDir)
	assert.Equal(t, "firefox", loaded.Cookies.Browser)
	assert.Equal(t, cfg.Download.FallbackFormat, loaded.Download.FallbackFormat)
}

func TestConfigValues(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Download.Timeout = 90 * time.Second

	values, err := ConfigValues(cfg)
	require.NoError(t, err)

	download, ok := values["download"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "1m30s", download["timeout"])
	assert.Equal(t, "18", download["fallback_format"])

	tools, ok := values["tools"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "yt-dlp", tools["ytdlp_binary"])
}

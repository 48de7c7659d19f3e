package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8686, config.Server.Port)
	assert.Equal(t, "$HOME/Videos", config.Download.OutputDir)
	assert.Equal(t, DefaultOutputTemplate, config.Download.OutputTemplate)
	assert.Equal(t, QualityBest, config.Download.DefaultQuality)
	assert.Equal(t, "18", config.Download.FallbackFormat)
	assert.Equal(t, 15, config.Download.Retries)
	assert.Equal(t, 15, config.Download.FragmentRetries)
	assert.Equal(t, 1, config.Download.ConcurrentFragments)
	assert.Zero(t, config.Download.Timeout)
	assert.Equal(t, "yt-dlp", config.Tools.YTDLPBinary)
	assert.Equal(t, "ffmpeg", config.Tools.FFmpegBinary)
	assert.False(t, config.Cookies.Enabled)
	assert.Empty(t, config.Cookies.Browser)
	assert.Equal(t, "info", config.Logging.Level)
}

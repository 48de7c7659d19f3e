package infrastructure

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/yourusername/ytfetch/internal/domain"
)

const versionTimeout = 10 * time.Second

// ToolChecker verifies that the external binaries are installed
type ToolChecker struct {
	ytdlp    string
	ffmpeg   string
	goos     string
	lookPath func(string) (string, error)
	output   func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewToolChecker creates a checker for the configured binaries
func NewToolChecker(tools domain.ToolsConfig) *ToolChecker {
	return &ToolChecker{
		ytdlp:    orDefault(tools.YTDLPBinary, "yt-dlp"),
		ffmpeg:   orDefault(tools.FFmpegBinary, "ffmpeg"),
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		output: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

// CheckFFmpeg fails with ErrToolMissing and an install hint when ffmpeg
// cannot be found. yt-dlp needs it to merge mp4 and to extract audio.
func (c *ToolChecker) CheckFFmpeg() error {
	if _, err := c.lookPath(c.ffmpeg); err != nil {
		return fmt.Errorf("%w: ffmpeg not found (%s)\n\n%s", domain.ErrToolMissing, c.ffmpeg, FFmpegInstallHint(c.goos))
	}
	return nil
}

// CheckYTDLP fails with ErrToolMissing when yt-dlp cannot be found
func (c *ToolChecker) CheckYTDLP() error {
	if _, err := c.lookPath(c.ytdlp); err != nil {
		return fmt.Errorf("%w: yt-dlp not found (%s)\n\n%s", domain.ErrToolMissing, c.ytdlp, YTDLPInstallHint(c.goos))
	}
	return nil
}

// FFmpegInstallHint tells the user how to install ffmpeg
func FFmpegInstallHint(goos string) string {
	switch goos {
	case "windows":
		return "Install it on Windows with:\n  winget install Gyan.FFmpeg\nthen restart your terminal."
	case "darwin":
		return "Install it on macOS with:\n  brew install ffmpeg"
	default:
		return "Install it on Linux with:\n  sudo apt install ffmpeg"
	}
}

// YTDLPInstallHint tells the user how to install yt-dlp
func YTDLPInstallHint(goos string) string {
	switch goos {
	case "windows":
		return "Install it on Windows with:\n  winget install yt-dlp.yt-dlp"
	case "darwin":
		return "Install it on macOS with:\n  brew install yt-dlp"
	default:
		return "Install it with:\n  python3 -m pip install -U yt-dlp"
	}
}

// ToolVersions reports what the doctor command found
type ToolVersions struct {
	YTDLP       string `json:"ytdlp,omitempty"`
	YTDLPError  string `json:"ytdlp_error,omitempty"`
	FFmpeg      string `json:"ffmpeg,omitempty"`
	FFmpegError string `json:"ffmpeg_error,omitempty"`
}

// Versions asks both tools for their version string
func (c *ToolChecker) Versions(ctx context.Context) ToolVersions {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	var v ToolVersions
	if out, err := c.output(ctx, c.ytdlp, "--version"); err != nil {
		v.YTDLPError = err.Error()
	} else {
		v.YTDLP = firstLine(out)
	}

	if out, err := c.output(ctx, c.ffmpeg, "-version"); err != nil {
		v.FFmpegError = err.Error()
	} else {
		v.FFmpeg = strings.TrimPrefix(firstLine(out), "ffmpeg version ")
	}
	return v
}

func firstLine(out []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

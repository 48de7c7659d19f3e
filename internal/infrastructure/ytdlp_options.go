package infrastructure

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yourusername/ytfetch/internal/domain"
)

// yt-dlp flags the builder emits
const (
	flagFormat              = "-f"
	flagOutput              = "-o"
	flagPaths               = "-P"
	flagNoPlaylist          = "--no-playlist"
	flagYesPlaylist         = "--yes-playlist"
	flagCookiesFromBrowser  = "--cookies-from-browser"
	flagMergeOutputFormat   = "--merge-output-format"
	flagExtractAudio        = "-x"
	flagAudioFormat         = "--audio-format"
	flagRetries             = "--retries"
	flagFragmentRetries     = "--fragment-retries"
	flagConcurrentFragments = "--concurrent-fragments"
	flagFFmpegLocation      = "--ffmpeg-location"
	flagNewline             = "--newline"
	flagNoColors            = "--no-colors"
	flagProgress            = "--progress"
	flagNoWarnings          = "--no-warnings"
)

// Format selectors
const (
	SelectorAudio = "ba/b"
	SelectorBest  = "bv*[ext=mp4]+ba[ext=m4a]/bv*+ba/b"
)

// FormatSelector returns the yt-dlp selector for a quality setting
func FormatSelector(q domain.Quality, audioOnly bool) string {
	if audioOnly {
		return SelectorAudio
	}
	if q == domain.QualityBest || q == "" {
		return SelectorBest
	}
	return fmt.Sprintf("bv*[height<=%[1]s][ext=mp4]+ba[ext=m4a]/bv*[height<=%[1]s]+ba/b", q)
}

// OptionBuilder turns a DownloadRequest into a yt-dlp invocation
type OptionBuilder struct {
	download domain.DownloadConfig
	tools    domain.ToolsConfig
}

// NewOptionBuilder creates a new option builder
func NewOptionBuilder(download domain.DownloadConfig, tools domain.ToolsConfig) *OptionBuilder {
	return &OptionBuilder{download: download, tools: tools}
}

// Build assembles the argv for one attempt. It has no side effects.
func (b *OptionBuilder) Build(req domain.DownloadRequest, useCookies bool, formatOverride string) domain.RunSpec {
	url := req.NormalizedURL()
	format := FormatSelector(req.Quality, req.AudioOnly)
	if formatOverride != "" {
		format = formatOverride
	}

	template := b.download.OutputTemplate
	if template == "" {
		template = domain.DefaultOutputTemplate
	}

	args := []string{
		flagFormat, format,
		flagPaths, req.OutputDir,
		flagOutput, template,
	}

	if req.AllowPlaylist {
		args = append(args, flagYesPlaylist)
	} else {
		args = append(args, flagNoPlaylist)
	}

	cookies := useCookies && req.CookieBrowser != ""
	if cookies {
		args = append(args, flagCookiesFromBrowser, req.CookieBrowser)
	}

	if req.AudioOnly {
		audioFormat := b.download.AudioFormat
		if audioFormat == "" {
			audioFormat = "mp3"
		}
		args = append(args, flagExtractAudio, flagAudioFormat, audioFormat)
	} else if b.download.MergeFormat != "" {
		args = append(args, flagMergeOutputFormat, b.download.MergeFormat)
	}

	args = append(args,
		flagRetries, strconv.Itoa(b.download.Retries),
		flagFragmentRetries, strconv.Itoa(b.download.FragmentRetries),
		flagConcurrentFragments, strconv.Itoa(max(b.download.ConcurrentFragments, 1)),
	)

	if ff := b.tools.FFmpegBinary; ff != "" && ff != "ffmpeg" {
		args = append(args, flagFFmpegLocation, ff)
	}

	args = append(args, flagNewline, flagNoColors, flagProgress)
	if b.download.NoWarnings {
		args = append(args, flagNoWarnings)
	}

	if b.tools.ExtraArgs != "" {
		args = append(args, strings.Fields(b.tools.ExtraArgs)...)
	}

	args = append(args, "--", url)

	binary := b.tools.YTDLPBinary
	if binary == "" {
		binary = "yt-dlp"
	}

	return domain.RunSpec{
		Binary:     binary,
		Args:       args,
		URL:        url,
		UseCookies: cookies,
		Format:     format,
	}
}

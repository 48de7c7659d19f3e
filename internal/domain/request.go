package domain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Quality is the requested video quality
type Quality string

const (
	QualityBest Quality = "best"
	Quality1080 Quality = "1080"
	Quality720  Quality = "720"
	Quality480  Quality = "480"
	Quality360  Quality = "360"
)

// Qualities lists the accepted quality values in display order
var Qualities = []Quality{QualityBest, Quality1080, Quality720, Quality480, Quality360}

// ValidateQuality checks if a quality is valid
func ValidateQuality(q Quality) bool {
	for _, known := range Qualities {
		if q == known {
			return true
		}
	}
	return false
}

// CookieBrowsers lists the browser identifiers yt-dlp can read cookies from
var CookieBrowsers = []string{"brave", "chrome", "chromium", "edge", "firefox", "opera", "safari", "vivaldi", "whale"}

// DownloadRequest is the user's intent for one download. It is a value
// type: everything downstream receives copies and never mutates it.
type DownloadRequest struct {
	RawURL        string  `json:"url" validate:"required"`
	Quality       Quality `json:"quality" validate:"required,oneof=best 1080 720 480 360"`
	AudioOnly     bool    `json:"audio_only"`
	AllowPlaylist bool    `json:"allow_playlist"`
	UseCookies    bool    `json:"use_cookies"`
	CookieBrowser string  `json:"cookie_browser,omitempty" validate:"omitempty,oneof=brave chrome chromium edge firefox opera safari vivaldi whale"`
	OutputDir     string  `json:"output_dir" validate:"required"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate checks the request fields. URL shape is checked separately by
// ValidateURL once the URL has been normalized.
func (r DownloadRequest) Validate() error {
	err := requestValidator().Struct(r)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, ", "))
}

// NormalizedURL derives the canonical URL from RawURL
func (r DownloadRequest) NormalizedURL() string {
	return NormalizeURL(strings.TrimSpace(r.RawURL))
}

// WithDefaults fills empty optional fields from the configuration
func (r DownloadRequest) WithDefaults(cfg *Config) DownloadRequest {
	if r.Quality == "" {
		r.Quality = cfg.Download.DefaultQuality
	}
	if r.OutputDir == "" {
		r.OutputDir = cfg.Download.OutputDir
	}
	if r.CookieBrowser == "" && r.UseCookies {
		r.CookieBrowser = cfg.Cookies.Browser
	}
	return r
}

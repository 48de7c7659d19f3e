package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// WatchURLTemplate is the canonical YouTube watch form
const WatchURLTemplate = "https://www.youtube.com/watch?v=%s"

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,}$`)

var youtubeHosts = map[string]bool{
	"youtube.com":     true,
	"www.youtube.com": true,
	"m.youtube.com":   true,
}

// NormalizeURL rewrites the short-form YouTube shapes (/shorts/<id> and
// youtu.be/<id>) into the canonical watch form. Every other input is
// returned unchanged, so the function is total and idempotent.
func NormalizeURL(raw string) string {
	id, ok := shortFormVideoID(raw)
	if !ok {
		return raw
	}
	return fmt.Sprintf(WatchURLTemplate, id)
}

// ExtractVideoID returns the video id carried by a short-form or canonical
// watch URL.
func ExtractVideoID(raw string) (string, bool) {
	if id, ok := shortFormVideoID(raw); ok {
		return id, true
	}

	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !isHTTP(u) || !youtubeHosts[strings.ToLower(u.Hostname())] {
		return "", false
	}
	if !strings.EqualFold(strings.TrimSuffix(u.Path, "/"), "/watch") {
		return "", false
	}
	id := u.Query().Get("v")
	if !videoIDPattern.MatchString(id) {
		return "", false
	}
	return id, true
}

func shortFormVideoID(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || !isHTTP(u) {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch {
	case youtubeHosts[host]:
		if len(segments) < 2 || !strings.EqualFold(segments[0], "shorts") {
			return "", false
		}
		return matchVideoID(segments[1])
	case host == "youtu.be":
		if len(segments) != 1 {
			return "", false
		}
		return matchVideoID(segments[0])
	}
	return "", false
}

func matchVideoID(s string) (string, bool) {
	if !videoIDPattern.MatchString(s) {
		return "", false
	}
	return s, true
}

func isHTTP(u *url.URL) bool {
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// ValidateURL reports whether a normalized URL can be handed to yt-dlp.
// Only absolute http(s) URLs with a host are accepted.
func ValidateURL(normalized string) error {
	if strings.TrimSpace(normalized) == "" {
		return fmt.Errorf("%w: url is empty", ErrInvalidURL)
	}

	u, err := url.Parse(normalized)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !isHTTP(u) {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

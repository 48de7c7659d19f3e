package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"youtu.be short link", "https://youtu.be/abc123", "https://www.youtube.com/watch?v=abc123"},
		{"youtu.be with share query", "https://youtu.be/dQw4w9WgXcQ?si=xyz", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"shorts", "https://www.youtube.com/shorts/abc123", "https://www.youtube.com/watch?v=abc123"},
		{"shorts without www", "https://youtube.com/shorts/abc123/", "https://www.youtube.com/watch?v=abc123"},
		{"shorts mobile host", "http://m.youtube.com/shorts/A_b-C9z", "https://www.youtube.com/watch?v=A_b-C9z"},
		{"case insensitive", "HTTPS://YOUTU.BE/abc123", "https://www.youtube.com/watch?v=abc123"},
		{"shorts upper case segment", "https://www.YouTube.com/Shorts/abc123", "https://www.youtube.com/watch?v=abc123"},
		{"canonical unchanged", "https://www.youtube.com/watch?v=abc123", "https://www.youtube.com/watch?v=abc123"},
		{"playlist unchanged", "https://www.youtube.com/playlist?list=PL123", "https://www.youtube.com/playlist?list=PL123"},
		{"id too short", "https://youtu.be/abc", "https://youtu.be/abc"},
		{"youtu.be nested path", "https://youtu.be/abc123/extra", "https://youtu.be/abc123/extra"},
		{"lookalike host", "https://notyoutu.be/abc123", "https://notyoutu.be/abc123"},
		{"other site", "https://vimeo.com/123456", "https://vimeo.com/123456"},
		{"not a url", "hello world", "hello world"},
		{"empty", "", ""},
		{"ftp scheme", "ftp://youtu.be/abc123", "ftp://youtu.be/abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeURL(tt.raw))
		})
	}
}

func TestNormalizeURL_Idempotent(t *testing.T) {
	inputs := []string{
		"https://youtu.be/abc123",
		"https://www.youtube.com/shorts/abc123",
		"https://www.youtube.com/watch?v=abc123",
		"https://vimeo.com/123456",
		"garbage",
		"",
	}

	for _, in := range inputs {
		once := NormalizeURL(in)
		assert.Equal(t, once, NormalizeURL(once), "input %q", in)
	}
}

func TestNormalizeURL_ShortFormsAgree(t *testing.T) {
	a := NormalizeURL("https://youtu.be/abc123")
	b := NormalizeURL("https://www.youtube.com/shorts/abc123")

	assert.Equal(t, a, b)
	assert.Contains(t, a, "abc123")
}

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		raw    string
		wantID string
		wantOK bool
	}{
		{"https://youtu.be/abc123", "abc123", true},
		{"https://www.youtube.com/shorts/xyz789", "xyz789", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?list=PL1", "", false},
		{"https://vimeo.com/123456", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			id, ok := ExtractVideoID(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"canonical", "https://www.youtube.com/watch?v=abc123", false},
		{"other host", "https://vimeo.com/123456", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"no scheme", "youtube.com/watch?v=abc123", true},
		{"file scheme", "file:///etc/passwd", true},
		{"no host", "https://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidURL))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

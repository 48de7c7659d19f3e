package infrastructure

import (
	"net/url"
	"strings"

	"github.com/atotto/clipboard"
)

// ClipboardReader reads a URL from the system clipboard
type ClipboardReader struct {
	readAll func() (string, error)
}

// NewClipboardReader creates a reader backed by the system clipboard
func NewClipboardReader() *ClipboardReader {
	return &ClipboardReader{readAll: clipboard.ReadAll}
}

// ReadURL returns the clipboard text if it is a single http(s) URL. A
// missing clipboard, read errors and any other content are not errors;
// they just yield ok == false.
func (c *ClipboardReader) ReadURL() (string, bool) {
	text, err := c.readAll()
	if err != nil {
		return "", false
	}

	text = strings.TrimSpace(text)
	if text == "" || strings.ContainsAny(text, " \t\r\n") {
		return "", false
	}

	u, err := url.Parse(text)
	if err != nil || u.Host == "" {
		return "", false
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return "", false
	}
	return text, true
}

package infrastructure

import (
	"os"
	"path/filepath"
	"runtime"
)

// CookieBrowserDetector picks an installed browser to read cookies from
type CookieBrowserDetector struct {
	goos   string
	getenv func(string) string
	exists func(string) bool
}

// NewCookieBrowserDetector creates a detector for the running platform
func NewCookieBrowserDetector() *CookieBrowserDetector {
	return &CookieBrowserDetector{
		goos:   runtime.GOOS,
		getenv: os.Getenv,
		exists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
	}
}

// Detect returns the first browser with a profile directory on Windows,
// in the order chrome, edge, firefox. Elsewhere it returns firefox. An empty
// result means no profile was found.
func (d *CookieBrowserDetector) Detect() string {
	if d.goos != "windows" {
		return "firefox"
	}

	for _, browser := range []string{"chrome", "edge", "firefox"} {
		if dir := d.profileDir(browser); dir != "" && d.exists(dir) {
			return browser
		}
	}
	return ""
}

func (d *CookieBrowserDetector) profileDir(browser string) string {
	appData := d.getenv("APPDATA")
	localAppData := d.getenv("LOCALAPPDATA")

	switch browser {
	case "firefox":
		if appData == "" {
			return ""
		}
		return filepath.Join(appData, "Mozilla", "Firefox", "Profiles")
	case "chrome":
		if localAppData == "" {
			return ""
		}
		return filepath.Join(localAppData, "Google", "Chrome", "User Data")
	case "edge":
		if localAppData == "" {
			return ""
		}
		return filepath.Join(localAppData, "Microsoft", "Edge", "User Data")
	}
	return ""
}

// Package filter decides whether a discovered path is eligible for the
// ingestion pipeline.
package filter

import (
	"os"
	"path/filepath"
	"strings"
)

// supportedExtensions is the process-wide set of file types the scrubber can
// handle. All entries are lower-case with a leading dot; candidates are
// lower-cased before the membership test.
var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".docx": true,
	".pdf":  true,
	".mp4":  true,
	".mov":  true,
}

// SupportedExtensions returns the supported extension set. Callers must not
// mutate the returned map.
func SupportedExtensions() map[string]bool {
	return supportedExtensions
}

// SupportedExtension reports whether the path's suffix is in the supported
// set, case-insensitively.
func SupportedExtension(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Eligible reports whether path should be processed. It rejects directories,
// hidden and temporary artifacts (names starting with "." or "~"), and
// unsupported extensions. It is a pure predicate: it never returns an error,
// and a stat failure just means the path is checked by name alone.
func Eligible(path string) bool {
	name := filepath.Base(path)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return false
	}
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") {
		return false
	}
	if !SupportedExtension(name) {
		return false
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return false
	}
	return true
}

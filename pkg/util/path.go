package util

import (
	"path/filepath"
	"strings"
)

// SafeFilePath cleans a relative path and reports false when it is empty,
// absolute, or escapes the current directory.
func SafeFilePath(p string) (string, bool) {
	cleaned, ok := SafeFilePathAllowAbsolute(p)
	if !ok || filepath.IsAbs(cleaned) {
		return "", false
	}
	return cleaned, true
}

// SafeFilePathAllowAbsolute is like SafeFilePath but accepts absolute paths.
func SafeFilePathAllowAbsolute(p string) (string, bool) {
	if p == "" {
		return "", false
	}
	// Windows-style separators are never cleaned on unix; treat any
	// backslash traversal as unsafe.
	if strings.Contains(p, `\`) && strings.Contains(p, "..") {
		return "", false
	}
	cleaned := filepath.Clean(p)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}

package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFileExtension checks that a filename carries one of the allowed
// extensions (case-insensitive)
func ValidateFileExtension(filename string, allowed []string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return nil
		}
	}
	return fmt.Errorf("file %q must have one of the extensions %v", filename, allowed)
}

// ValidateFileSize checks an upload against the configured maximum
func ValidateFileSize(size, maxSize int64) error {
	if size <= 0 {
		return fmt.Errorf("file is empty")
	}
	if size > maxSize {
		return fmt.Errorf("file too large: %d bytes exceeds maximum of %.1fMB",
			size, float64(maxSize)/(1024*1024))
	}
	return nil
}

// SanitizeString removes control characters from user-supplied text
func SanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

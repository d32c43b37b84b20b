package util

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidFileName = errors.New("invalid file name")

	unsafeFileChars  = regexp.MustCompile(`[^a-zA-Z0-9.-]`)
	unsafeTenantChar = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
)

// SanitizeFileName makes an uploaded name safe for storage keys.
func SanitizeFileName(name string) string {
	s := strings.TrimSpace(name)
	s = unsafeFileChars.ReplaceAllString(s, "_")
	s = strings.ReplaceAll(s, "..", "_")
	if s == "" || s == "." {
		return "file"
	}
	return s
}

// ValidateStoredName rejects names that could escape a folder.
func ValidateStoredName(name string) error {
	if strings.TrimSpace(name) == "" ||
		strings.Contains(name, "/") ||
		strings.Contains(name, "\\") ||
		strings.Contains(name, "..") {
		return ErrInvalidFileName
	}
	return nil
}

// SanitizeCompanyID strips characters that are not valid in a tenant path segment.
func SanitizeCompanyID(id string) string {
	return unsafeTenantChar.ReplaceAllString(strings.TrimSpace(id), "")
}

// MaskSecret keeps the first 8 characters of a credential.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return s + "****"
	}
	return s[:8] + "****"
}

package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePackageID validates a package identifier for safety and correctness.
// It rejects identifiers that could be used for path traversal or URL injection.
//
// The validation rules are intentionally conservative:
//   - No empty identifiers
//   - No control characters
//   - No path traversal sequences (.., //)
//   - No null bytes or backslashes
//   - Maximum length of 100 characters (NuGet's own limit)
func ValidatePackageID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidPackage, "package id cannot be empty")
	}

	if len(id) > 100 {
		return New(ErrCodeInvalidPackage, "package id too long (max 100 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package id contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
		"/",    // Path separator
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidPackage, "package id contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// nugetPackageIDRegex matches valid NuGet package identifiers: dot-separated
// segments of letters, digits, hyphens and underscores.
var nugetPackageIDRegex = regexp.MustCompile(`^\w+([.-]\w+)*$`)

// ValidateNuGetPackageID validates a NuGet package identifier.
func ValidateNuGetPackageID(id string) error {
	if err := ValidatePackageID(id); err != nil {
		return err
	}

	if !nugetPackageIDRegex.MatchString(id) {
		return New(ErrCodeInvalidPackage, "invalid NuGet package id: %q", id)
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidConfig, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidConfig, "URL must use http or https scheme")
	}

	return nil
}

// ValidateCredential validates an optional credential field. A nil value
// means the field is absent from configuration and is valid (anonymous
// access). A present-but-blank secret almost always means a broken
// environment substitution, so it is rejected rather than treated as
// anonymous access.
func ValidateCredential(field string, value *string) error {
	if value == nil {
		return nil
	}
	if strings.TrimSpace(*value) == "" {
		return New(ErrCodeBlankCredential, "%s is set but blank", field)
	}
	return nil
}

package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePathSegment validates a single URL path segment that is later joined
// onto a directory on disk (sprite names, font stacks, glyph ranges).
// It rejects segments that could be used for path traversal.
//
// The validation rules are intentionally conservative:
//   - No empty segments
//   - No control characters or null bytes
//   - No path separators or traversal sequences
//   - Maximum length of 256 characters
func ValidatePathSegment(segment string) error {
	if segment == "" {
		return New(ErrCodeInvalidInput, "path segment cannot be empty")
	}

	if len(segment) > 256 {
		return New(ErrCodeInvalidInput, "path segment too long (max 256 characters)")
	}

	for _, r := range segment {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "path segment contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Separator
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(segment, pattern) {
			return New(ErrCodeInvalidInput, "path segment contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// glyphRangeRegex matches glyph range names such as "0-255" or "65280-65535".
var glyphRangeRegex = regexp.MustCompile(`^[0-9]+-[0-9]+$`)

// ValidateGlyphRange validates the {range} component of a glyph request.
func ValidateGlyphRange(r string) error {
	if !glyphRangeRegex.MatchString(r) {
		return New(ErrCodeInvalidInput, "invalid glyph range: %q", r)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// ValidateTileTemplate validates an upstream raster URL template.
// The template must be an http(s) URL containing {z}, {x} and {y}.
func ValidateTileTemplate(tmpl string) error {
	if err := ValidateURL(tmpl); err != nil {
		return err
	}
	for _, p := range []string{"{z}", "{x}", "{y}"} {
		if !strings.Contains(tmpl, p) {
			return New(ErrCodeInvalidInput, "tile template %q is missing %s", tmpl, p)
		}
	}
	return nil
}

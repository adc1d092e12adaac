package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// formatRegex matches Graphviz output format names, including the
// renderer/formatter suffixes dot accepts (e.g. "png:cairo").
var formatRegex = regexp.MustCompile(`^[a-z][a-z0-9]*(:[a-z0-9]+)*$`)

// ValidateFormat validates an output image format.
// The format becomes both a renderer flag and a file extension, so it is
// restricted to lowercase alphanumerics with optional ":" qualifiers.
func ValidateFormat(format string) error {
	if format == "" {
		return New(ErrCodeInvalidFormat, "format cannot be empty")
	}
	if len(format) > 32 {
		return New(ErrCodeInvalidFormat, "format too long (max 32 characters)")
	}
	if !formatRegex.MatchString(format) {
		return New(ErrCodeInvalidFormat, "invalid format: %q", format)
	}
	return nil
}

// ValidateMarker validates a position-boundary marker.
// A marker must be a single non-blank line.
func ValidateMarker(marker string) error {
	if strings.TrimSpace(marker) == "" {
		return New(ErrCodeInvalidDelimiter, "marker cannot be empty")
	}
	if strings.ContainsAny(marker, "\r\n") {
		return New(ErrCodeInvalidDelimiter, "marker must be a single line")
	}
	if strings.Contains(marker, "}") {
		return New(ErrCodeInvalidDelimiter, "marker cannot contain the graph closing token")
	}
	return nil
}

// ValidateFileName validates a file name received from an untrusted caller.
// It must be a plain base name without path components.
//
// Validation rules:
//   - Name cannot be empty
//   - Maximum length of 255 characters
//   - No control characters
//   - No path separators or traversal sequences
func ValidateFileName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "file name cannot be empty")
	}
	if len(name) > 255 {
		return New(ErrCodeInvalidInput, "file name too long (max 255 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "file name contains invalid characters")
		}
	}
	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidInput, "file name cannot contain path separators")
	}
	if name == "." || strings.Contains(name, "..") {
		return New(ErrCodeInvalidInput, "file name cannot contain path traversal sequences")
	}
	return nil
}

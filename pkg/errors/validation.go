package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// maxPathLength bounds source paths accepted by the CLI and batch runner.
const maxPathLength = 4096

// ValidateSourcePath validates the path of an SVG file handed to the converter.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
//   - Extension must be .svg (case-insensitive)
func ValidateSourcePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if !strings.EqualFold(filepath.Ext(path), ".svg") {
		return New(ErrCodeInvalidPath, "not an SVG file: %s", path)
	}

	return nil
}

// ValidateFilename validates a client-supplied file name, such as the name
// query parameter of the HTTP API. It must be a simple basename.
func ValidateFilename(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "filename cannot be empty")
	}

	if len(name) > 255 {
		return New(ErrCodeInvalidInput, "filename too long (max 255 characters)")
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidInput, "filename cannot contain path separators")
	}

	for _, r := range name {
		if unicode.IsControl(r) || r == '"' {
			return New(ErrCodeInvalidInput, "filename contains invalid characters")
		}
	}

	if strings.HasPrefix(name, ".") {
		return New(ErrCodeInvalidInput, "filename cannot be a hidden file")
	}

	return nil
}

package errors

import (
	"math"
	"path/filepath"
	"strings"
	"unicode"
)

// Bounds accepted by the validators.
const (
	MaxDetailRatio = 1.0
	MinDetailRatio = 0.1
	MaxPasses      = 64
	maxPathLength  = 4096
)

// ValidateDetail validates a detail size and ratio pair.
//
// Validation rules:
//   - Size must be finite and positive
//   - Ratio must lie in [MinDetailRatio, MaxDetailRatio]
func ValidateDetail(size, ratio float64) error {
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		return New(ErrCodeInvalidConfig, "detail size must be positive, got %g", size)
	}
	if math.IsNaN(ratio) || ratio < MinDetailRatio || ratio > MaxDetailRatio {
		return New(ErrCodeInvalidConfig, "detail ratio must be in [%g, %g], got %g",
			MinDetailRatio, MaxDetailRatio, ratio)
	}
	return nil
}

// ValidatePasses validates the number of remesh passes per run.
func ValidatePasses(n int) error {
	if n < 1 || n > MaxPasses {
		return New(ErrCodeInvalidConfig, "passes must be in [1, %d], got %d", MaxPasses, n)
	}
	return nil
}

// ValidatePath validates a mesh file path given on the command line or in
// a config file.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// ValidateRelativePath validates a path that must stay inside a base
// directory, such as a cache key or a file name received over HTTP.
// It prevents path traversal attacks.
func ValidateRelativePath(path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}
	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}
	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}
	return nil
}

// ValidateMeshFile validates the path of a mesh file in a supported format.
func ValidateMeshFile(path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj", ".json":
		return nil
	case "":
		return New(ErrCodeInvalidFormat, "mesh file %q has no extension", path)
	default:
		return New(ErrCodeUnsupported, "unsupported mesh format %q", filepath.Ext(path))
	}
}

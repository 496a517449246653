package util

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// NormalizePatternPath cleans and normalizes paths for matcher/pattern usage.
func NormalizePatternPath(s string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(s, "\\", "/"))
	clean := path.Clean(trimmed)
	if clean == "." {
		return ""
	}
	return strings.TrimPrefix(clean, "./")
}

// SplitPathComponents splits a relative path into its segments, the shape
// gitignore matchers expect. The empty path has no components.
func SplitPathComponents(rel string) []string {
	norm := NormalizePatternPath(rel)
	if norm == "" {
		return nil
	}
	return strings.Split(norm, "/")
}

// RelativeSlash returns target relative to base using forward slashes, or
// the cleaned target itself when it is not below base.
func RelativeSlash(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return NormalizePatternPath(filepath.ToSlash(target))
	}
	return NormalizePatternPath(filepath.ToSlash(rel))
}

// EnsureParentDir creates the directory that will hold file (0755).
func EnsureParentDir(file string) error {
	dir := filepath.Dir(file)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

package fileutil

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot indicates a path resolves outside the repository root.
var ErrOutsideRoot = errors.New("path resolves outside repository root")

// NormalizeRel returns a clean POSIX-style relative path.
// Absolute and root-escaping inputs are returned cleaned with ok=false.
func NormalizeRel(p string) (string, bool) {
	slashed := filepath.ToSlash(strings.TrimSpace(p))
	if slashed == "" {
		return "", false
	}
	if path.IsAbs(slashed) || filepath.IsAbs(p) || filepath.VolumeName(p) != "" {
		return path.Clean(slashed), false
	}
	clean := path.Clean(slashed)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return clean, false
	}
	return clean, true
}

// ToPosixRel returns the POSIX-style path of target relative to base.
func ToPosixRel(base, target string) (string, error) {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(filepath.Clean(rel))
	return strings.TrimPrefix(rel, "./"), nil
}

// ResolveRoot returns the absolute, symlink-free form of a directory.
func ResolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", &os.PathError{Op: "stat", Path: abs, Err: errors.New("not a directory")}
	}
	return filepath.EvalSymlinks(abs)
}

// ResolveWithin resolves rel under the already-resolved root, following
// symlinks only while they stay inside root.
// It returns os.ErrNotExist for missing paths and ErrOutsideRoot for escapes.
func ResolveWithin(resolvedRoot, rel string) (string, error) {
	clean, ok := NormalizeRel(rel)
	if !ok {
		return "", ErrOutsideRoot
	}
	candidate := filepath.Join(resolvedRoot, filepath.FromSlash(clean))
	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return "", err
	}
	if !IsWithin(resolvedRoot, resolved) {
		return "", ErrOutsideRoot
	}
	return resolved, nil
}

// IsWithin reports whether target is root or lies beneath it.
func IsWithin(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel != ".." && !strings.HasPrefix(rel, "../") && !filepath.IsAbs(rel)
}

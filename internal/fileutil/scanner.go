package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ScanOptions configures the directory scanning behavior
type ScanOptions struct {
	// Extensions is a list of file extensions to include (e.g., ".go"); empty = all
	Extensions []string
	// ExcludeDirs is a list of directory names to exclude (e.g., ".git", "node_modules")
	ExcludeDirs []string
	// Exclude filters out repo-relative paths matching any of its globs
	Exclude *Matcher
	// SkipPaths are exact repo-relative paths to leave out
	SkipPaths []string
}

// FileEntry is one scanned file.
type FileEntry struct {
	// Path is relative to the scanned root, POSIX separators
	Path string
	// ModTime is the file's own modification time (symlinks are not followed)
	ModTime time.Time
}

// ScanResult contains the results of a directory scan
type ScanResult struct {
	// Files sorted by Path
	Files []FileEntry
	// Errors contains any errors encountered during scanning
	Errors []error
}

// ScanDirectory walks dir and returns the files passing the provided options.
// Hidden directories are always skipped. Symlinked directories are never
// descended into.
func ScanDirectory(dir string, opts ScanOptions) (*ScanResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	result := &ScanResult{
		Files:  make([]FileEntry, 0),
		Errors: make([]error, 0),
	}

	extMap := extensionSet(opts.Extensions)

	excludeMap := make(map[string]bool)
	for _, d := range opts.ExcludeDirs {
		excludeMap[d] = true
	}

	skipMap := make(map[string]bool)
	for _, p := range opts.SkipPaths {
		if clean, ok := NormalizeRel(p); ok {
			skipMap[clean] = true
		}
	}

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", path, err))
			return nil // Continue walking
		}

		if path == dir {
			return nil
		}

		rel, relErr := ToPosixRel(dir, path)
		if relErr != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to relativize %s: %w", path, relErr))
			return nil
		}

		if d.IsDir() {
			if IsExcludedDir(d.Name(), excludeMap) {
				return filepath.SkipDir
			}
			return nil
		}

		if skipMap[rel] || opts.Exclude.Match(rel) {
			return nil
		}

		if !hasExtension(d.Name(), extMap) {
			return nil
		}

		fi, infoErr := d.Info()
		if infoErr != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to stat %s: %w", path, infoErr))
			return nil
		}

		result.Files = append(result.Files, FileEntry{Path: rel, ModTime: fi.ModTime()})
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Slice(result.Files, func(i, j int) bool {
		return result.Files[i].Path < result.Files[j].Path
	})

	return result, nil
}

// HasExtension reports whether rel ends in one of exts ("go" or ".go").
// An empty list admits every path.
func HasExtension(rel string, exts []string) bool {
	return hasExtension(rel, extensionSet(exts))
}

func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.TrimSpace(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[strings.ToLower(ext)] = true
	}
	return set
}

func hasExtension(name string, set map[string]bool) bool {
	if len(set) == 0 {
		return true
	}
	return set[strings.ToLower(filepath.Ext(name))]
}

// IsExcludedDir reports whether a directory name is hidden or listed.
func IsExcludedDir(name string, excluded map[string]bool) bool {
	return excluded[name] || (strings.HasPrefix(name, ".") && name != "." && name != "..")
}

// IsExcludedPath applies the scanner's directory rules to a repo-relative
// file path that did not come from a walk (e.g. from version control).
func IsExcludedPath(rel string, excludeDirs []string, exclude *Matcher) bool {
	excludeMap := make(map[string]bool, len(excludeDirs))
	for _, d := range excludeDirs {
		excludeMap[d] = true
	}
	segments := strings.Split(rel, "/")
	for _, seg := range segments[:len(segments)-1] {
		if IsExcludedDir(seg, excludeMap) {
			return true
		}
	}
	return exclude.Match(rel)
}

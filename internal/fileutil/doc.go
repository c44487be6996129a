// Package fileutil provides the repository file-system primitives shared by
// the contract validator and the drift checker.
//
// # Scanning
//
// ScanDirectory walks a repository and returns repo-relative POSIX paths with
// their modification times, sorted by path so two scans of an unmodified tree
// are identical. Hidden directories and ExcludeDirs are pruned; ExcludePatterns
// are applied to the relative path with the glob Matcher.
//
//	m, _ := fileutil.CompileGlobs([]string{"docs/**", "**/*.md"})
//	res, err := fileutil.ScanDirectory(root, fileutil.ScanOptions{
//	    ExcludeDirs: []string{".git", "node_modules"},
//	    Exclude:     m,
//	})
//
// IsExcludedPath applies the same rules to paths that did not come from a
// walk, such as a version-control change set.
//
// # Root confinement
//
// ResolveRoot and ResolveWithin resolve symlinks and refuse anything that
// ends up outside the repository root, so probes never leave the guarded
// repository.
package fileutil

package fileutil

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Matcher matches repo-relative POSIX paths against a set of glob patterns.
//
// Supported syntax:
//   - *  matches within one path segment (no '/')
//   - ** matches across directories; "**/" also matches zero directories
//   - ?  matches one character other than '/'
type Matcher struct {
	res []*regexp.Regexp
}

// CompileGlobs compiles patterns into a Matcher.
func CompileGlobs(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		re, err := regexp.Compile(globToRegex(filepath.ToSlash(p)))
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", p, err)
		}
		m.res = append(m.res, re)
	}
	return m, nil
}

// ValidateGlob rejects patterns that can never match a repo-relative path.
func ValidateGlob(pattern string) error {
	p := filepath.ToSlash(strings.TrimSpace(pattern))
	switch {
	case p == "":
		return fmt.Errorf("empty glob pattern")
	case strings.HasPrefix(p, "/"):
		return fmt.Errorf("glob %q must be relative to the repository root", pattern)
	}
	_, err := CompileGlobs([]string{p})
	return err
}

// Match reports whether relPath matches any pattern.
func (m *Matcher) Match(relPath string) bool {
	if m == nil {
		return false
	}
	rel := strings.TrimPrefix(filepath.ToSlash(relPath), "./")
	for _, re := range m.res {
		if re.MatchString(rel) {
			return true
		}
	}
	return false
}

// globToRegex converts a glob to an anchored regex.
func globToRegex(glob string) string {
	var b strings.Builder
	b.WriteString("^")

	runes := []rune(glob)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '*' && i+1 < len(runes) && runes[i+1] == '*':
			i++
			if i+1 < len(runes) && runes[i+1] == '/' {
				// "**/" may match no directory at all
				b.WriteString("(?:.*/)?")
				i++
			} else {
				b.WriteString(".*")
			}
		case ch == '*':
			b.WriteString("[^/]*")
		case ch == '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}

	b.WriteString("$")
	return b.String()
}

package fileutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcherGlobSyntax(t *testing.T) {
	tests := []struct {
		path    string
		pattern string
		want    bool
	}{
		{"docs/intent.md", "docs/**", true},
		{"docs/deep/nested/file.go", "docs/**", true},
		{"src/docs/file.go", "docs/**", false},
		{"README.md", "**/*.md", true},
		{"pkg/sub/notes.md", "**/*.md", true},
		{"pkg/sub/notes.mdx", "**/*.md", false},
		{"main.go", "*.go", true},
		{"cmd/main.go", "*.go", false},
		{"cmd/main.go", "**/*.go", true},
		{"a.txt", "?.txt", true},
		{"ab.txt", "?.txt", false},
		{"a/b.txt", "a?b.txt", false},
		{"file(1).go", "file(1).go", true},
		{"file1.go", "file(1).go", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			m, err := CompileGlobs([]string{tt.pattern})
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Match(tt.path))
		})
	}
}

func TestCompileGlobs(t *testing.T) {
	m, err := CompileGlobs([]string{"docs/**", "  ", "**/*.txt"})
	require.NoError(t, err)

	assert.Len(t, m.res, 2, "blank patterns are dropped")
	assert.True(t, m.Match("./docs/a.md"))
	assert.True(t, m.Match("notes/todo.txt"))
	assert.False(t, m.Match("src/main.go"))
}

func TestMatcherNil(t *testing.T) {
	var m *Matcher
	assert.False(t, m.Match("anything"))
}

func TestValidateGlob(t *testing.T) {
	assert.NoError(t, ValidateGlob("**/*.md"))
	assert.Error(t, ValidateGlob(""))
	assert.Error(t, ValidateGlob("/abs/*.go"))
}

package drift

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/driftguard/internal/config"
	"github.com/harrison/driftguard/internal/models"
	"github.com/harrison/driftguard/internal/vcs"
)

const marker = "docs/current_state.md"

var base = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// repo writes files with the given modification times relative to base.
func repo(t *testing.T, files map[string]time.Duration) string {
	t.Helper()
	root := t.TempDir()
	for name, offset := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(name), 0644))
		mod := base.Add(offset)
		require.NoError(t, os.Chtimes(path, mod, mod))
	}
	return root
}

// noGit behaves like a directory outside any work tree.
func noGit() *vcs.Git {
	return vcs.NewGitWithCommand(func(ctx context.Context, dir string, args ...string) (string, error) {
		return "", errors.New("fatal: not a git repository")
	})
}

// pendingGit reports paths as unstaged changes.
func pendingGit(paths ...string) *vcs.Git {
	return vcs.NewGitWithCommand(func(ctx context.Context, dir string, args ...string) (string, error) {
		joined := strings.Join(args, " ")
		switch {
		case strings.HasPrefix(joined, "rev-parse"):
			return "true\n", nil
		case strings.HasSuffix(joined, "--no-renames"):
			return strings.Join(paths, "\n"), nil
		default:
			return "", nil
		}
	})
}

func defaultOptions() Options {
	return OptionsFromConfig(config.DefaultConfig(), nil)
}

func TestCheckMissingMarker(t *testing.T) {
	root := repo(t, map[string]time.Duration{"main.go": 0})

	ev, err := NewChecker(noGit()).Check(context.Background(), root, defaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMissingFreshnessMarker)
	assert.False(t, ev.MarkerIsStale)
	assert.Empty(t, ev.RepoRoot, "no evidence is produced without a marker")
}

func TestCheckMarkerIsDirectory(t *testing.T) {
	root := repo(t, map[string]time.Duration{"docs/current_state.md/inner": 0})

	_, err := NewChecker(noGit()).Check(context.Background(), root, defaultOptions())
	assert.Equal(t, models.KindMissingFreshnessMarker, models.KindOf(err))
}

func TestCheckInvalidRoot(t *testing.T) {
	_, err := NewChecker(noGit()).Check(context.Background(), filepath.Join(t.TempDir(), "missing"), defaultOptions())
	assert.ErrorIs(t, err, models.ErrInvalidRoot)
}

func TestCheckTimestampSignal(t *testing.T) {
	root := repo(t, map[string]time.Duration{
		marker:                      0,
		"main.go":                   time.Hour,
		"pkg/old.go":                -time.Hour,
		"pkg/same.go":               0,
		"README.md":                 time.Hour,
		"docs/intent.md":            time.Hour,
		"node_modules/dep/index.js": time.Hour,
		".github/workflows/ci.yml":  time.Hour,
	})

	ev, err := NewChecker(noGit()).Check(context.Background(), root, defaultOptions())
	require.NoError(t, err)

	assert.True(t, ev.MarkerIsStale)
	assert.False(t, ev.OK)
	assert.False(t, ev.ChangeSetAvailable)
	assert.Equal(t, []string{"main.go"}, ev.ChangedPaths)
	assert.Equal(t, []string{models.SignalTimestamp}, ev.Signals)
	assert.Equal(t, []models.PathEvidence{{Path: "main.go", Signals: []string{models.SignalTimestamp}}}, ev.Evidence)
	require.Len(t, ev.Failures, 1)
	assert.Equal(t, models.RuleCurrentStateUpdated, ev.Failures[0].Rule)
	assert.Equal(t, marker, ev.DocFreshnessMarkerPath)
	assert.Contains(t, strings.Join(ev.Reasoning, "\n"), "change set unavailable")
}

func TestCheckCurrentMarker(t *testing.T) {
	root := repo(t, map[string]time.Duration{
		marker:    time.Hour,
		"main.go": 0,
	})

	ev, err := NewChecker(noGit()).Check(context.Background(), root, defaultOptions())
	require.NoError(t, err)
	assert.True(t, ev.OK)
	assert.False(t, ev.MarkerIsStale)
	assert.Empty(t, ev.ChangedPaths)
	assert.Empty(t, ev.Failures)
}

func TestCheckIsIdempotent(t *testing.T) {
	root := repo(t, map[string]time.Duration{
		marker:      0,
		"a.go":      time.Minute,
		"b/c.go":    2 * time.Minute,
		"b/d.go":    -time.Minute,
		"AGENTS.md": 0,
	})
	checker := NewChecker(pendingGit("b/d.go", "e.go"))
	opts := defaultOptions()

	first, err := checker.Check(context.Background(), root, opts)
	require.NoError(t, err)
	second, err := checker.Check(context.Background(), root, opts)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("evidence changed between runs (-first +second):\n%s", diff)
	}
}

func TestCheckChangeSetSignal(t *testing.T) {
	root := repo(t, map[string]time.Duration{
		marker:     0,
		"a.go":     -time.Hour,
		"new.go":   -time.Hour,
		"both.go":  time.Hour,
		"NOTES.md": -time.Hour,
	})
	checker := NewChecker(pendingGit("a.go", "both.go", "NOTES.md", "vendor/x.go", "deleted.go"))

	ev, err := checker.Check(context.Background(), root, defaultOptions())
	require.NoError(t, err)

	assert.True(t, ev.ChangeSetAvailable)
	assert.False(t, ev.MarkerInChangeSet)
	assert.Equal(t, []string{models.SignalTimestamp, models.SignalChangeSet}, ev.Signals)
	assert.Equal(t, []string{"a.go", "both.go", "deleted.go"}, ev.ChangedPaths)
	assert.Equal(t, []models.PathEvidence{
		{Path: "a.go", Signals: []string{models.SignalChangeSet}},
		{Path: "both.go", Signals: []string{models.SignalTimestamp, models.SignalChangeSet}},
		{Path: "deleted.go", Signals: []string{models.SignalChangeSet}},
	}, ev.Evidence)
}

func TestCheckIncludeExtensions(t *testing.T) {
	root := repo(t, map[string]time.Duration{
		marker:      0,
		"main.go":   time.Hour,
		"Makefile":  time.Hour,
		"script.py": time.Hour,
	})
	checker := NewChecker(pendingGit("lib.go", "tool.py", "Makefile"))

	cfg := config.DefaultConfig()
	cfg.Drift.IncludeExtensions = []string{"go"}
	ev, err := checker.Check(context.Background(), root, OptionsFromConfig(cfg, nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"lib.go", "main.go"}, ev.ChangedPaths)
	assert.True(t, ev.MarkerIsStale)
}

func TestCheckMarkerInChangeSet(t *testing.T) {
	root := repo(t, map[string]time.Duration{
		marker: 0,
		"a.go": -time.Hour,
	})
	checker := NewChecker(pendingGit("a.go", marker))

	ev, err := checker.Check(context.Background(), root, defaultOptions())
	require.NoError(t, err)

	assert.True(t, ev.MarkerInChangeSet)
	assert.False(t, ev.MarkerIsStale)
	assert.Empty(t, ev.ChangedPaths)
	assert.True(t, ev.OK)
}

func TestCheckTimestampsStillCountWithMarkerPending(t *testing.T) {
	root := repo(t, map[string]time.Duration{
		marker: 0,
		"a.go": time.Hour,
	})
	checker := NewChecker(pendingGit("a.go", marker))

	ev, err := checker.Check(context.Background(), root, defaultOptions())
	require.NoError(t, err)

	assert.True(t, ev.MarkerIsStale, "an edit after the marker is drift even when both are pending")
	assert.Equal(t, []string{"a.go"}, ev.ChangedPaths)
}

func TestCheckFreshCheckoutHint(t *testing.T) {
	root := repo(t, map[string]time.Duration{
		marker:    0,
		"main.go": time.Hour,
	})

	ev, err := NewChecker(pendingGit()).Check(context.Background(), root, defaultOptions())
	require.NoError(t, err)
	assert.True(t, ev.MarkerIsStale, "timestamps still count with an empty change set")
	assert.Contains(t, strings.Join(ev.Reasoning, "\n"), "set drift.use_timestamps: false")

	ev, err = NewChecker(pendingGit("main.go")).Check(context.Background(), root, defaultOptions())
	require.NoError(t, err)
	assert.NotContains(t, strings.Join(ev.Reasoning, "\n"), "use_timestamps")
}

func TestCheckLinkedDocRule(t *testing.T) {
	root := repo(t, map[string]time.Duration{
		marker:           time.Hour,
		"docs/intent.md": 0,
	})
	checker := NewChecker(pendingGit("docs/intent.md"))

	ev, err := checker.Check(context.Background(), root, defaultOptions())
	require.NoError(t, err)

	assert.False(t, ev.MarkerIsStale)
	assert.False(t, ev.OK)
	require.Len(t, ev.Failures, 1)
	assert.Equal(t, models.RuleLinkedDocRequiresMarker, ev.Failures[0].Rule)
	assert.Equal(t, []string{"docs/intent.md"}, ev.Failures[0].Paths)
}

func TestCheckContractRule(t *testing.T) {
	root := repo(t, map[string]time.Duration{
		marker:      time.Hour,
		"AGENTS.md": 0,
	})
	spec := models.ContractSpec{RequiredFiles: []string{"AGENTS.md", "docs/phases.md"}, Authoritative: marker}
	opts := OptionsFromConfig(config.DefaultConfig(), &spec)

	ev, err := NewChecker(noGit()).Check(context.Background(), root, opts)
	require.NoError(t, err)

	assert.False(t, ev.OK)
	require.Len(t, ev.Failures, 1)
	assert.Equal(t, models.RuleRepoContract, ev.Failures[0].Rule)
	assert.Equal(t, []string{"docs/phases.md"}, ev.Failures[0].Paths)
}

func TestCheckTimestampFallback(t *testing.T) {
	root := repo(t, map[string]time.Duration{
		marker:    0,
		"main.go": time.Hour,
	})
	opts := defaultOptions()
	opts.UseTimestamps = false

	ev, err := NewChecker(noGit()).Check(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{models.SignalTimestamp}, ev.Signals)
	assert.Equal(t, []string{"main.go"}, ev.ChangedPaths)
	assert.Contains(t, strings.Join(ev.Reasoning, "\n"), "fallback")

	ev, err = NewChecker(pendingGit()).Check(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{models.SignalChangeSet}, ev.Signals)
	assert.Empty(t, ev.ChangedPaths, "timestamps are not consulted when disabled and git is available")
}

func TestOptionsFromConfigUsesAuthoritative(t *testing.T) {
	spec := models.ContractSpec{Authoritative: "docs/state.md"}
	opts := OptionsFromConfig(config.DefaultConfig(), &spec)
	assert.Equal(t, "docs/state.md", opts.Marker)
	assert.Equal(t, marker, OptionsFromConfig(config.DefaultConfig(), nil).Marker)
}

package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/driftguard/internal/config"
	"github.com/harrison/driftguard/internal/models"
)

// testRepo creates a repository satisfying the default contract whose
// instructions document is agents.
func testRepo(t *testing.T, agents string) string {
	t.Helper()
	root := t.TempDir()
	old := time.Now().Add(-time.Hour)
	for _, f := range config.DefaultRequiredFiles {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		content := "# " + f + "\n"
		if f == "AGENTS.md" {
			content = agents
		}
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		if f != "docs/current_state.md" {
			require.NoError(t, os.Chtimes(path, old, old))
		}
	}
	return root
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootHelpListsCommands(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"serve", "contract", "drift", "verify", "profiles"} {
		assert.Contains(t, out, name)
	}
}

func TestContractJSON(t *testing.T) {
	root := testRepo(t, "# Agents\n")

	out, _, err := execute(t, "--repo", root, "contract", "--json")
	require.NoError(t, err)

	var report models.ContractReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.OK)

	require.NoError(t, os.Remove(filepath.Join(root, "docs", "phases.md")))
	out, _, err = execute(t, "--repo", root, "contract", "--json")
	code, ok := IsExitError(err)
	require.True(t, ok, "expected exit error, got %v", err)
	assert.Equal(t, 1, code)
	var failed models.ContractReport
	require.NoError(t, json.Unmarshal([]byte(out), &failed))
	assert.False(t, failed.OK)
	assert.Equal(t, []string{"docs/phases.md"}, failed.Missing)
}

func TestContractInvalidRoot(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")

	out, _, err := execute(t, "--repo", missing, "contract", "--json")
	_, ok := IsExitError(err)
	require.True(t, ok)

	var payload map[string]models.ToolError
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, models.KindInvalidRoot, payload["error"].Kind)
}

func TestRepoConfigEnablesRunLog(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("run log uses a symlink")
	}
	root := testRepo(t, "# Agents\n")
	cfgPath := filepath.Join(root, config.DirName, "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(cfgPath), 0755))
	require.NoError(t, os.WriteFile(cfgPath, []byte("log_dir: .driftguard/logs\n"), 0644))

	_, _, err := execute(t, "--repo", root, "contract", "--json")
	require.NoError(t, err)

	_, err = os.Lstat(filepath.Join(root, ".driftguard", "logs", "latest.log"))
	assert.NoError(t, err, "log_dir from the repository config should start a run log")
}

func TestProfilesCommand(t *testing.T) {
	root := testRepo(t, "## Verification\n\n```bash\nmake test\n```\n\n## Verify: lint\n\n- `make lint`\n")

	out, _, err := execute(t, "--repo", root, "profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "default (1)")
	assert.Contains(t, out, "lint (1)")
	assert.Contains(t, out, "  make lint")
}

func TestVerifyCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	root := testRepo(t, "## Verification\n\n```bash\ntrue\necho hello\n```\n\n## Verify: broken\n\n```bash\nexit 3\necho never\n```\n")

	out, _, err := execute(t, "--repo", root, "verify", "--json")
	require.NoError(t, err)

	var result models.VerificationResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.OverallOK)
	assert.Equal(t, "default", result.Profile)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, "hello\n", result.Steps[1].Stdout)

	out, _, err = execute(t, "--repo", root, "verify", "broken", "--json")
	code, ok := IsExitError(err)
	require.True(t, ok)
	assert.Equal(t, 1, code)
	var broken models.VerificationResult
	require.NoError(t, json.Unmarshal([]byte(out), &broken))
	assert.False(t, broken.OverallOK)
	require.Len(t, broken.Steps, 2)
	assert.Equal(t, 3, broken.Steps[0].ExitCode)
	assert.Equal(t, models.StepSkipped, broken.Steps[1].Status)
}

func TestVerifyUnknownProfile(t *testing.T) {
	root := testRepo(t, "## Verification\n\n- make test\n")

	_, stderr, err := execute(t, "--repo", root, "verify", "nightly")
	_, ok := IsExitError(err)
	require.True(t, ok)
	assert.Contains(t, stderr, "UnknownProfile")
	assert.Contains(t, stderr, "Available profiles: default")
}

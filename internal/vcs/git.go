// Package vcs reads the pending change set of a git work tree.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// CommandFunc runs git with args in dir and returns stdout.
type CommandFunc func(ctx context.Context, dir string, args ...string) (string, error)

// ChangeSet is the pending (uncommitted) change set of a work tree.
// Paths are relative to the directory the Git was asked about.
type ChangeSet struct {
	Unstaged  []string
	Staged    []string
	Untracked []string
}

// All returns the sorted union of every pending path.
func (c ChangeSet) All() []string {
	var all []string
	all = append(all, c.Unstaged...)
	all = append(all, c.Staged...)
	all = append(all, c.Untracked...)
	return uniqueSorted(all)
}

// Contains reports whether rel is part of the change set.
func (c ChangeSet) Contains(rel string) bool {
	for _, p := range c.All() {
		if p == rel {
			return true
		}
	}
	return false
}

// Git inspects work trees with the git binary.
type Git struct {
	run CommandFunc
}

// NewGit returns a Git that shells out to the git on PATH.
func NewGit() *Git {
	return &Git{run: execGit}
}

// NewGitWithCommand returns a Git backed by a custom command function.
// Useful for testing.
func NewGitWithCommand(fn CommandFunc) *Git {
	return &Git{run: fn}
}

// IsWorkTree reports whether dir is inside a git work tree. A missing git
// binary or any git failure counts as "no".
func (g *Git) IsWorkTree(ctx context.Context, dir string) bool {
	out, err := g.run(ctx, dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// PendingChanges returns staged, unstaged and untracked paths under dir.
// Renames are reported as a deletion plus an addition so both names count.
func (g *Git) PendingChanges(ctx context.Context, dir string) (ChangeSet, error) {
	var cs ChangeSet
	var err error

	if cs.Unstaged, err = g.names(ctx, dir, "diff", "--name-only", "--relative", "--no-renames"); err != nil {
		return ChangeSet{}, fmt.Errorf("git diff: %w", err)
	}
	if cs.Staged, err = g.names(ctx, dir, "diff", "--name-only", "--relative", "--no-renames", "--staged"); err != nil {
		return ChangeSet{}, fmt.Errorf("git diff --staged: %w", err)
	}
	if cs.Untracked, err = g.names(ctx, dir, "ls-files", "--others", "--exclude-standard"); err != nil {
		return ChangeSet{}, fmt.Errorf("git ls-files: %w", err)
	}
	return cs, nil
}

func (g *Git) names(ctx context.Context, dir string, args ...string) ([]string, error) {
	full := append([]string{"-c", "core.quotepath=off"}, args...)
	out, err := g.run(ctx, dir, full...)
	if err != nil {
		return nil, err
	}

	var res []string
	for _, ln := range strings.Split(out, "\n") {
		s := strings.TrimSpace(ln)
		if s == "" {
			continue
		}
		res = append(res, strings.ReplaceAll(s, "\\", "/"))
	}
	return uniqueSorted(res), nil
}

func execGit(ctx context.Context, dir string, args ...string) (string, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, gitPath, args...)
	cmd.Dir = dir
	// Never let git prompt or take optional index locks
	cmd.Env = append(cmd.Environ(), "GIT_TERMINAL_PROMPT=0", "GIT_OPTIONAL_LOCKS=0")

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(errBuf.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return out.String(), nil
}

func uniqueSorted(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

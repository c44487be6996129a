// Package drift detects code changes that were not accompanied by an
// update of the documentation freshness marker.
//
// Two signals are combined as a union: files modified after the marker
// (timestamps) and files in the pending git change set while the marker is
// not. A path counts as changed when either signal says so; a spurious
// warning is cheaper than missed drift.
package drift

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/harrison/driftguard/internal/config"
	"github.com/harrison/driftguard/internal/contract"
	"github.com/harrison/driftguard/internal/fileutil"
	"github.com/harrison/driftguard/internal/models"
	"github.com/harrison/driftguard/internal/vcs"
)

// Options configures one drift check.
type Options struct {
	Marker          string
	ExcludeDirs     []string
	ExcludePatterns []string
	LinkedDocs      []string
	UseGit          bool
	UseTimestamps   bool

	// IncludeExtensions, when non-empty, limits substantive files by extension.
	IncludeExtensions []string

	// Contract, when set, adds the repo_contract rule.
	Contract *models.ContractSpec
}

// OptionsFromConfig derives Options from configuration and the resolved
// contract, whose authoritative file is the freshness marker.
func OptionsFromConfig(cfg *config.Config, spec *models.ContractSpec) Options {
	marker := cfg.Drift.FreshnessMarker
	if spec != nil && spec.Authoritative != "" {
		marker = spec.Authoritative
	}
	return Options{
		Marker:            marker,
		ExcludeDirs:       cfg.Drift.ExcludeDirs,
		ExcludePatterns:   cfg.Drift.ExcludePatterns,
		IncludeExtensions: cfg.Drift.IncludeExtensions,
		LinkedDocs:        cfg.Drift.LinkedDocs,
		UseGit:            cfg.Drift.UseGit,
		UseTimestamps:     cfg.Drift.UseTimestamps,
		Contract:          spec,
	}
}

// Checker runs drift checks.
type Checker struct {
	git *vcs.Git
}

// NewChecker creates a Checker; a nil git uses the git binary on PATH.
func NewChecker(git *vcs.Git) *Checker {
	if git == nil {
		git = vcs.NewGit()
	}
	return &Checker{git: git}
}

// Check inspects repoRoot and reports whether the freshness marker is stale.
// A missing marker fails with MissingFreshnessMarker; it is never treated
// as "no drift".
func (c *Checker) Check(ctx context.Context, repoRoot string, opts Options) (models.DriftEvidence, error) {
	root, err := contract.ResolveRoot(repoRoot)
	if err != nil {
		return models.DriftEvidence{}, err
	}

	marker, ok := fileutil.NormalizeRel(opts.Marker)
	if !ok {
		return models.DriftEvidence{}, models.NewGuardError(models.KindInvalidConfig,
			fmt.Sprintf("freshness marker %q must be a path inside the repository", opts.Marker), nil)
	}

	markerInfo, err := statMarker(root, marker)
	if err != nil {
		return models.DriftEvidence{}, err
	}

	exclude, err := fileutil.CompileGlobs(opts.ExcludePatterns)
	if err != nil {
		return models.DriftEvidence{}, models.NewGuardError(models.KindInvalidConfig, "invalid exclude pattern", err)
	}

	ev := models.DriftEvidence{
		RepoRoot:               root,
		DocFreshnessMarkerPath: marker,
		ChangedPaths:           []string{},
		Signals:                []string{},
		Evidence:               []models.PathEvidence{},
		Reasoning:              []string{},
		Failures:               []models.DriftFailure{},
	}
	flagged := make(map[string][]string)

	var changeSet *vcs.ChangeSet
	if opts.UseGit {
		changeSet = c.changeSet(ctx, root, &ev)
	}

	useTimestamps := opts.UseTimestamps
	if !useTimestamps && changeSet == nil {
		useTimestamps = true
		ev.Reasoning = append(ev.Reasoning,
			"timestamp signal enabled as a fallback because no change set is available")
	}

	if useTimestamps {
		if err := timestampSignal(root, marker, markerInfo.ModTime(), opts, exclude, flagged, &ev); err != nil {
			return models.DriftEvidence{}, err
		}
	} else {
		ev.Reasoning = append(ev.Reasoning,
			"timestamp signal disabled; only the change set is used (files edited after the marker are not detected)")
	}

	if changeSet != nil {
		changeSetSignal(*changeSet, marker, opts, exclude, flagged, &ev)
	}

	for p := range flagged {
		ev.ChangedPaths = append(ev.ChangedPaths, p)
	}
	sort.Strings(ev.ChangedPaths)
	for _, p := range ev.ChangedPaths {
		ev.Evidence = append(ev.Evidence, models.PathEvidence{Path: p, Signals: flagged[p]})
	}

	if changeSet != nil && useTimestamps {
		if n := timestampOnly(ev.ChangedPaths, *changeSet); n > 0 {
			ev.Reasoning = append(ev.Reasoning, fmt.Sprintf(
				"timestamp: %d path(s) are newer than %s but not pending in git, as after a fresh clone or branch switch; "+
					"set drift.use_timestamps: false to rely on the change set alone", n, marker))
		}
	}

	ev.MarkerIsStale = len(ev.ChangedPaths) > 0
	if ev.MarkerIsStale {
		ev.Reasoning = append(ev.Reasoning, fmt.Sprintf(
			"marker is stale: %d changed path(s) are not reflected in %s", len(ev.ChangedPaths), marker))
		ev.Failures = append(ev.Failures, models.DriftFailure{
			Rule:    models.RuleCurrentStateUpdated,
			Message: fmt.Sprintf("Code changed but %s was not updated (drift).", marker),
			Paths:   ev.ChangedPaths,
		})
	} else {
		ev.Reasoning = append(ev.Reasoning, fmt.Sprintf("marker is current: no substantive change after %s", marker))
	}

	if changeSet != nil && !ev.MarkerInChangeSet {
		for _, doc := range opts.LinkedDocs {
			norm, ok := fileutil.NormalizeRel(doc)
			if !ok || norm == marker || !changeSet.Contains(norm) {
				continue
			}
			ev.Failures = append(ev.Failures, models.DriftFailure{
				Rule:    models.RuleLinkedDocRequiresMarker,
				Message: fmt.Sprintf("%s changed but %s did not. Verify alignment (potential drift).", norm, marker),
				Paths:   []string{norm},
			})
		}
	}

	if opts.Contract != nil {
		report, err := contract.Validate(root, *opts.Contract)
		if err != nil {
			return models.DriftEvidence{}, err
		}
		if !report.OK {
			ev.Failures = append(ev.Failures, models.DriftFailure{
				Rule:    models.RuleRepoContract,
				Message: "Repo contract is not satisfied (missing required files).",
				Paths:   report.Missing,
			})
		}
	}

	ev.OK = len(ev.Failures) == 0
	return ev, nil
}

// timestampOnly counts changed paths the change set does not contain.
func timestampOnly(paths []string, cs vcs.ChangeSet) int {
	n := 0
	for _, p := range paths {
		if !cs.Contains(p) {
			n++
		}
	}
	return n
}

// statMarker fails with MissingFreshnessMarker unless marker is a regular
// file inside root.
func statMarker(root, marker string) (os.FileInfo, error) {
	missing := func(msg string, cause error) error {
		ge := models.NewGuardError(models.KindMissingFreshnessMarker, msg, cause)
		ge.Path = marker
		return ge
	}

	resolved, err := fileutil.ResolveWithin(root, marker)
	if errors.Is(err, fileutil.ErrOutsideRoot) {
		return nil, missing("freshness marker resolves outside the repository", nil)
	}
	if err != nil {
		return nil, missing("freshness marker file does not exist", nil)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, missing("freshness marker file cannot be read", err)
	}
	if info.IsDir() {
		return nil, missing("freshness marker is a directory, not a file", nil)
	}
	return info, nil
}

func (c *Checker) changeSet(ctx context.Context, root string, ev *models.DriftEvidence) *vcs.ChangeSet {
	if !c.git.IsWorkTree(ctx, root) {
		ev.Reasoning = append(ev.Reasoning,
			"change set unavailable: not a git work tree or git not installed; relying on timestamps only")
		return nil
	}
	cs, err := c.git.PendingChanges(ctx, root)
	if err != nil {
		ev.Reasoning = append(ev.Reasoning,
			fmt.Sprintf("change set unavailable: %v; relying on timestamps only", err))
		return nil
	}
	ev.ChangeSetAvailable = true
	return &cs
}

func timestampSignal(root, marker string, markerMod time.Time, opts Options, exclude *fileutil.Matcher,
	flagged map[string][]string, ev *models.DriftEvidence) error {
	scan, err := fileutil.ScanDirectory(root, fileutil.ScanOptions{
		Extensions:  opts.IncludeExtensions,
		ExcludeDirs: opts.ExcludeDirs,
		Exclude:     exclude,
		SkipPaths:   []string{marker},
	})
	if err != nil {
		return models.NewGuardError(models.KindInternal, "failed to scan repository", err)
	}

	newer := 0
	for _, f := range scan.Files {
		if f.ModTime.After(markerMod) {
			flagged[f.Path] = append(flagged[f.Path], models.SignalTimestamp)
			newer++
		}
	}

	ev.Signals = append(ev.Signals, models.SignalTimestamp)
	ev.Reasoning = append(ev.Reasoning, fmt.Sprintf(
		"timestamp: %d of %d substantive file(s) modified after %s (%s)",
		newer, len(scan.Files), marker, markerMod.UTC().Format(time.RFC3339Nano)))
	if len(scan.Errors) > 0 {
		ev.Reasoning = append(ev.Reasoning, fmt.Sprintf(
			"timestamp: %d path(s) could not be read and were skipped", len(scan.Errors)))
	}
	return nil
}

func changeSetSignal(cs vcs.ChangeSet, marker string, opts Options, exclude *fileutil.Matcher,
	flagged map[string][]string, ev *models.DriftEvidence) {
	ev.Signals = append(ev.Signals, models.SignalChangeSet)
	ev.MarkerInChangeSet = cs.Contains(marker)

	var substantive []string
	for _, p := range cs.All() {
		if p == marker || fileutil.IsExcludedPath(p, opts.ExcludeDirs, exclude) ||
			!fileutil.HasExtension(p, opts.IncludeExtensions) {
			continue
		}
		substantive = append(substantive, p)
	}

	if ev.MarkerInChangeSet {
		ev.Reasoning = append(ev.Reasoning, fmt.Sprintf(
			"change set: %s is part of the pending change set; %d substantive pending path(s) are covered by it",
			marker, len(substantive)))
		return
	}

	for _, p := range substantive {
		flagged[p] = append(flagged[p], models.SignalChangeSet)
	}
	ev.Reasoning = append(ev.Reasoning, fmt.Sprintf(
		"change set: %d substantive pending path(s) while %s is not pending", len(substantive), marker))
}

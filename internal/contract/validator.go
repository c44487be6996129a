// Package contract checks that a repository carries the governance files
// its engineering process requires.
package contract

import (
	"fmt"

	"github.com/harrison/driftguard/internal/fileutil"
	"github.com/harrison/driftguard/internal/models"
)

// ResolveRoot validates repoRoot and returns its resolved absolute form.
// It fails with InvalidRoot when the path is missing or not a directory.
func ResolveRoot(repoRoot string) (string, error) {
	root, err := fileutil.ResolveRoot(repoRoot)
	if err != nil {
		ge := models.NewGuardError(models.KindInvalidRoot,
			fmt.Sprintf("repository root %q does not exist or is not a directory", repoRoot), err)
		ge.Path = repoRoot
		return "", ge
	}
	return root, nil
}

// Validate tests every required path for existence under repoRoot.
// Paths that escape the root, directly or through a symlink, are reported
// missing and never probed outside it.
func Validate(repoRoot string, spec models.ContractSpec) (models.ContractReport, error) {
	root, err := ResolveRoot(repoRoot)
	if err != nil {
		return models.ContractReport{}, err
	}

	report := models.ContractReport{
		RepoRoot:      root,
		RequiredFiles: append([]string{}, spec.RequiredFiles...),
		Present:       []string{},
		Missing:       []string{},
		Authoritative: spec.Authoritative,
		Source:        spec.Source,
	}

	for _, p := range spec.RequiredFiles {
		if Exists(root, p) {
			report.Present = append(report.Present, p)
		} else {
			report.Missing = append(report.Missing, p)
		}
	}

	report.OK = len(report.Missing) == 0
	return report, nil
}

// Exists reports whether rel exists inside the resolved root.
func Exists(resolvedRoot, rel string) bool {
	_, err := fileutil.ResolveWithin(resolvedRoot, rel)
	return err == nil
}

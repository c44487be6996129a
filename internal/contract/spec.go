package contract

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/harrison/driftguard/internal/config"
	"github.com/harrison/driftguard/internal/fileutil"
	"github.com/harrison/driftguard/internal/models"
)

// contractFile mirrors docs/v2_contract.json. JSON is valid YAML, so the
// YAML decoder reads both spellings.
type contractFile struct {
	RequiredFiles []string `yaml:"required_files"`
	Authoritative string   `yaml:"authoritative"`
}

// NewSpec builds a ContractSpec, dropping duplicates while keeping order.
// Paths are normalised to forward slashes; unsafe paths are kept verbatim
// so they get reported as missing.
func NewSpec(paths []string, authoritative, source string) models.ContractSpec {
	seen := make(map[string]bool, len(paths))
	spec := models.ContractSpec{Authoritative: authoritative, Source: source}
	for _, p := range paths {
		clean, ok := fileutil.NormalizeRel(p)
		if !ok {
			clean = p
		}
		if clean == "" || seen[clean] {
			continue
		}
		seen[clean] = true
		spec.RequiredFiles = append(spec.RequiredFiles, clean)
	}
	if norm, ok := fileutil.NormalizeRel(authoritative); ok {
		spec.Authoritative = norm
	}
	return spec
}

// LoadSpec resolves the contract for a repository.
// Precedence: contract file in the repository, then config, then defaults.
func LoadSpec(repoRoot string, cfg *config.Config) (models.ContractSpec, error) {
	source := models.ContractSourceDefault
	if !sameList(cfg.Contract.RequiredFiles, config.DefaultRequiredFiles) {
		source = models.ContractSourceConfig
	}
	spec := NewSpec(cfg.Contract.RequiredFiles, cfg.Drift.FreshnessMarker, source)

	if cfg.Contract.File == "" {
		return spec, nil
	}
	rel, ok := fileutil.NormalizeRel(cfg.Contract.File)
	if !ok {
		return spec, models.NewGuardError(models.KindInvalidConfig,
			fmt.Sprintf("contract file %q is outside the repository", cfg.Contract.File), nil)
	}

	root, err := fileutil.ResolveRoot(repoRoot)
	if err != nil {
		ge := models.NewGuardError(models.KindInvalidRoot, "repository root is not an accessible directory", err)
		ge.Path = repoRoot
		return spec, ge
	}

	// A contract file reached through a symlink leaving the root is ignored.
	path, err := fileutil.ResolveWithin(root, rel)
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, fileutil.ErrOutsideRoot) {
		return spec, nil
	}
	if err != nil {
		return spec, models.NewGuardError(models.KindInternal, "failed to resolve contract file", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return spec, models.NewGuardError(models.KindInternal, "failed to read contract file", err)
	}

	var cf contractFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		ge := models.NewGuardError(models.KindInvalidConfig, "failed to parse contract file", err)
		ge.Path = rel
		return spec, ge
	}

	required := cf.RequiredFiles
	if len(required) == 0 {
		required = spec.RequiredFiles
	}
	authoritative := cf.Authoritative
	if authoritative == "" {
		authoritative = spec.Authoritative
	}
	return NewSpec(required, authoritative, rel), nil
}

func sameList(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

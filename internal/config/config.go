package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/driftguard/internal/fileutil"
)

// DirName is the per-repository directory holding drift-guard files.
const DirName = ".driftguard"

// ContractConfig configures the repository contract.
type ContractConfig struct {
	// File is a repo-relative contract file (JSON or YAML) that overrides RequiredFiles
	File string `yaml:"file"`

	// RequiredFiles replaces the built-in contract list when non-empty
	RequiredFiles []string `yaml:"required_files"`
}

// DriftConfig configures the drift checker.
type DriftConfig struct {
	// FreshnessMarker is the documentation file whose freshness is checked
	FreshnessMarker string `yaml:"freshness_marker"`

	// ExcludeDirs are directory names never considered substantive
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// ExcludePatterns are globs (*, **, ?) of repo-relative paths never considered substantive
	ExcludePatterns []string `yaml:"exclude_patterns"`

	// IncludeExtensions limits substantive files to these extensions (empty = all)
	IncludeExtensions []string `yaml:"include_extensions"`

	// LinkedDocs are documents that require the marker to change alongside them
	LinkedDocs []string `yaml:"linked_docs"`

	// UseGit enables the version-control change-set signal
	UseGit bool `yaml:"use_git"`

	// UseTimestamps enables the modification-time signal
	UseTimestamps bool `yaml:"use_timestamps"`
}

// VerifyConfig configures the verification runner.
type VerifyConfig struct {
	// InstructionsFile is the repo-relative document holding verification profiles
	InstructionsFile string `yaml:"instructions_file"`

	// Shell runs each command as `<shell> -c <command>`
	Shell string `yaml:"shell"`

	// CommandTimeout bounds each command (0 = no timeout)
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// MaxOutputBytes keeps only the tail of stdout/stderr (0 = unlimited)
	MaxOutputBytes int `yaml:"max_output_bytes"`

	// ReportFile is a repo-relative path for the last run's JSON report (empty = disabled)
	ReportFile string `yaml:"report_file"`
}

// Config represents drift-guard configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir enables file logging into this directory when set
	LogDir string `yaml:"log_dir"`

	Contract ContractConfig `yaml:"contract"`
	Drift    DriftConfig    `yaml:"drift"`
	Verify   VerifyConfig   `yaml:"verify"`
}

// DefaultRequiredFiles is the built-in repository contract.
var DefaultRequiredFiles = []string{
	"AGENTS.md",
	"docs/intent.md",
	"docs/current_state.md",
	"docs/phases.md",
	"docs/phase_execution_prompt.md",
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		LogDir:   "",
		Contract: ContractConfig{
			File:          "docs/v2_contract.json",
			RequiredFiles: append([]string(nil), DefaultRequiredFiles...),
		},
		Drift: DriftConfig{
			FreshnessMarker: "docs/current_state.md",
			ExcludeDirs: []string{
				".git", "node_modules", "vendor", "dist", "build", "target",
				"bin", "obj", "__pycache__", ".venv", "venv",
			},
			ExcludePatterns: []string{"docs/**", "**/*.md", "**/*.txt", "**/*.rst"},
			LinkedDocs:      []string{"docs/intent.md"},
			UseGit:          true,
			UseTimestamps:   true,
		},
		Verify: VerifyConfig{
			InstructionsFile: "AGENTS.md",
			Shell:            "sh",
			CommandTimeout:   10 * time.Minute,
			MaxOutputBytes:   8000,
			ReportFile:       "",
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Pointers distinguish "absent" from an explicit zero value
	type yamlConfig struct {
		LogLevel string  `yaml:"log_level"`
		LogDir   *string `yaml:"log_dir"`
		Contract struct {
			File          *string  `yaml:"file"`
			RequiredFiles []string `yaml:"required_files"`
		} `yaml:"contract"`
		Drift struct {
			FreshnessMarker   string   `yaml:"freshness_marker"`
			ExcludeDirs       []string `yaml:"exclude_dirs"`
			ExcludePatterns   []string `yaml:"exclude_patterns"`
			IncludeExtensions []string `yaml:"include_extensions"`
			LinkedDocs        []string `yaml:"linked_docs"`
			UseGit            *bool    `yaml:"use_git"`
			UseTimestamps     *bool    `yaml:"use_timestamps"`
		} `yaml:"drift"`
		Verify struct {
			InstructionsFile string  `yaml:"instructions_file"`
			Shell            string  `yaml:"shell"`
			CommandTimeout   string  `yaml:"command_timeout"`
			MaxOutputBytes   *int    `yaml:"max_output_bytes"`
			ReportFile       *string `yaml:"report_file"`
		} `yaml:"verify"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != nil {
		cfg.LogDir = *yamlCfg.LogDir
	}

	if yamlCfg.Contract.File != nil {
		cfg.Contract.File = *yamlCfg.Contract.File
	}
	if len(yamlCfg.Contract.RequiredFiles) > 0 {
		cfg.Contract.RequiredFiles = yamlCfg.Contract.RequiredFiles
	}

	if yamlCfg.Drift.FreshnessMarker != "" {
		cfg.Drift.FreshnessMarker = yamlCfg.Drift.FreshnessMarker
	}
	// Lists replace defaults, an explicit empty list clears them
	if yamlCfg.Drift.ExcludeDirs != nil {
		cfg.Drift.ExcludeDirs = yamlCfg.Drift.ExcludeDirs
	}
	if yamlCfg.Drift.ExcludePatterns != nil {
		cfg.Drift.ExcludePatterns = yamlCfg.Drift.ExcludePatterns
	}
	if yamlCfg.Drift.IncludeExtensions != nil {
		cfg.Drift.IncludeExtensions = yamlCfg.Drift.IncludeExtensions
	}
	if yamlCfg.Drift.LinkedDocs != nil {
		cfg.Drift.LinkedDocs = yamlCfg.Drift.LinkedDocs
	}
	if yamlCfg.Drift.UseGit != nil {
		cfg.Drift.UseGit = *yamlCfg.Drift.UseGit
	}
	if yamlCfg.Drift.UseTimestamps != nil {
		cfg.Drift.UseTimestamps = *yamlCfg.Drift.UseTimestamps
	}

	if yamlCfg.Verify.InstructionsFile != "" {
		cfg.Verify.InstructionsFile = yamlCfg.Verify.InstructionsFile
	}
	if yamlCfg.Verify.Shell != "" {
		cfg.Verify.Shell = yamlCfg.Verify.Shell
	}
	if yamlCfg.Verify.CommandTimeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Verify.CommandTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid command_timeout format %q: %w", yamlCfg.Verify.CommandTimeout, err)
		}
		cfg.Verify.CommandTimeout = timeout
	}
	if yamlCfg.Verify.MaxOutputBytes != nil {
		cfg.Verify.MaxOutputBytes = *yamlCfg.Verify.MaxOutputBytes
	}
	if yamlCfg.Verify.ReportFile != nil {
		cfg.Verify.ReportFile = *yamlCfg.Verify.ReportFile
	}

	return cfg, nil
}

// ConfigPath returns the default config file location for a repository.
func ConfigPath(repoRoot string) string {
	return filepath.Join(repoRoot, DirName, "config.yaml")
}

// LoadConfigFromDir loads configuration from .driftguard/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(ConfigPath(dir))
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(logLevel *string, commandTimeout *time.Duration) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if commandTimeout != nil {
		c.Verify.CommandTimeout = *commandTimeout
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if err := validateRelPath("drift.freshness_marker", c.Drift.FreshnessMarker, true); err != nil {
		return err
	}
	if !c.Drift.UseGit && !c.Drift.UseTimestamps {
		return fmt.Errorf("drift: at least one of use_git and use_timestamps must be enabled")
	}
	for _, p := range c.Drift.ExcludePatterns {
		if err := fileutil.ValidateGlob(p); err != nil {
			return fmt.Errorf("drift.exclude_patterns: %w", err)
		}
	}
	for _, ext := range c.Drift.IncludeExtensions {
		if e := strings.TrimPrefix(strings.TrimSpace(ext), "."); e == "" || strings.ContainsAny(e, "/\\*?") {
			return fmt.Errorf("drift.include_extensions: invalid extension %q", ext)
		}
	}

	if err := validateRelPath("verify.instructions_file", c.Verify.InstructionsFile, true); err != nil {
		return err
	}
	if err := validateRelPath("verify.report_file", c.Verify.ReportFile, false); err != nil {
		return err
	}
	if strings.TrimSpace(c.Verify.Shell) == "" {
		return fmt.Errorf("verify.shell cannot be empty")
	}
	if c.Verify.CommandTimeout < 0 {
		return fmt.Errorf("verify.command_timeout must be >= 0, got %v", c.Verify.CommandTimeout)
	}
	if c.Verify.MaxOutputBytes < 0 {
		return fmt.Errorf("verify.max_output_bytes must be >= 0, got %d", c.Verify.MaxOutputBytes)
	}

	return nil
}

// validateRelPath rejects absolute and root-escaping paths.
func validateRelPath(field, p string, required bool) error {
	if p == "" {
		if required {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
	if _, ok := fileutil.NormalizeRel(p); !ok {
		return fmt.Errorf("%s must be a path inside the repository root, got %q", field, p)
	}
	return nil
}

// Package service maps drift-guard's operations onto its components.
//
// Every call reloads configuration and re-reads the repository; nothing is
// cached between calls.
package service

import (
	"context"
	"fmt"

	"github.com/harrison/driftguard/internal/config"
	"github.com/harrison/driftguard/internal/contract"
	"github.com/harrison/driftguard/internal/drift"
	"github.com/harrison/driftguard/internal/executor"
	"github.com/harrison/driftguard/internal/logger"
	"github.com/harrison/driftguard/internal/models"
	"github.com/harrison/driftguard/internal/vcs"
)

// RunnerFactory builds the command runner used for one verification run.
type RunnerFactory func(cfg *config.Config) executor.CommandRunner

// Service executes operations against one repository.
type Service struct {
	repoRoot   string
	configPath string
	overrides  func(*config.Config)
	logger     logger.Logger
	git        *vcs.Git
	newRunner  RunnerFactory
}

// Option customises a Service.
type Option func(*Service)

// WithConfigPath reads configuration from path instead of the repository's
// .driftguard/config.yaml.
func WithConfigPath(path string) Option {
	return func(s *Service) { s.configPath = path }
}

// WithOverrides applies fn to every freshly loaded configuration before it
// is validated. The CLI uses it to merge flags.
func WithOverrides(fn func(*config.Config)) Option {
	return func(s *Service) { s.overrides = fn }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGit replaces the git client used by drift checks.
func WithGit(g *vcs.Git) Option {
	return func(s *Service) { s.git = g }
}

// WithRunnerFactory replaces the shell runner used by verification.
func WithRunnerFactory(f RunnerFactory) Option {
	return func(s *Service) { s.newRunner = f }
}

// New creates a Service for repoRoot.
func New(repoRoot string, opts ...Option) *Service {
	s := &Service{
		repoRoot: repoRoot,
		logger:   logger.NewNoOpLogger(),
		newRunner: func(cfg *config.Config) executor.CommandRunner {
			return executor.NewShellCommandRunner(cfg.Verify.Shell, cfg.Verify.CommandTimeout, cfg.Verify.MaxOutputBytes)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// loadConfig resolves the root and reads configuration fresh.
func (s *Service) loadConfig() (string, *config.Config, error) {
	root, err := contract.ResolveRoot(s.repoRoot)
	if err != nil {
		return "", nil, err
	}

	path := s.configPath
	if path == "" {
		path = config.ConfigPath(root)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		ge := models.NewGuardError(models.KindInvalidConfig, "failed to load configuration", err)
		ge.Path = path
		return "", nil, ge
	}
	if s.overrides != nil {
		s.overrides(cfg)
	}
	if err := cfg.Validate(); err != nil {
		ge := models.NewGuardError(models.KindInvalidConfig, "invalid configuration", err)
		ge.Path = path
		return "", nil, ge
	}
	return root, cfg, nil
}

// ContractValidate checks the repository contract.
func (s *Service) ContractValidate(ctx context.Context) (models.ContractReport, error) {
	root, cfg, err := s.loadConfig()
	if err != nil {
		return models.ContractReport{}, s.fail("contract", err)
	}

	spec, err := contract.LoadSpec(root, cfg)
	if err != nil {
		return models.ContractReport{}, s.fail("contract", err)
	}

	report, err := contract.Validate(root, spec)
	if err != nil {
		return models.ContractReport{}, s.fail("contract", err)
	}
	s.logger.LogContract(report)
	return report, nil
}

// DriftCheck compares repository changes against the freshness marker.
func (s *Service) DriftCheck(ctx context.Context) (models.DriftEvidence, error) {
	root, cfg, err := s.loadConfig()
	if err != nil {
		return models.DriftEvidence{}, s.fail("drift", err)
	}

	spec, err := contract.LoadSpec(root, cfg)
	if err != nil {
		return models.DriftEvidence{}, s.fail("drift", err)
	}

	checker := drift.NewChecker(s.git)
	evidence, err := checker.Check(ctx, root, drift.OptionsFromConfig(cfg, &spec))
	if err != nil {
		return models.DriftEvidence{}, s.fail("drift", err)
	}
	for _, line := range evidence.Reasoning {
		s.logger.LogDebug(line)
	}
	s.logger.LogDrift(evidence)
	return evidence, nil
}

// VerifyRun executes a verification profile; an empty profile selects the
// default one.
func (s *Service) VerifyRun(ctx context.Context, profile string) (*models.VerificationResult, error) {
	root, cfg, err := s.loadConfig()
	if err != nil {
		return nil, s.fail("verify", err)
	}

	result, err := s.verifier(cfg).Run(ctx, root, profile, profile != "")
	if err != nil {
		return nil, s.fail("verify", err)
	}
	return result, nil
}

// Profiles lists the verification profiles the instructions document defines.
func (s *Service) Profiles(ctx context.Context) ([]models.VerificationProfile, error) {
	root, cfg, err := s.loadConfig()
	if err != nil {
		return nil, s.fail("profiles", err)
	}

	doc, _, err := s.verifier(cfg).LoadInstructions(root)
	if err != nil {
		return nil, s.fail("profiles", err)
	}
	return doc.Profiles(), nil
}

func (s *Service) verifier(cfg *config.Config) *executor.Verifier {
	return executor.NewVerifier(s.newRunner(cfg),
		executor.WithLogger(s.logger),
		executor.WithInstructionsFile(cfg.Verify.InstructionsFile),
		executor.WithReportFile(cfg.Verify.ReportFile),
	)
}

func (s *Service) fail(op string, err error) error {
	s.logger.LogError(fmt.Sprintf("%s: %v", op, err))
	return err
}

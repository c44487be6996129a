package cmd

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/driftguard/internal/config"
	"github.com/harrison/driftguard/internal/logger"
	"github.com/harrison/driftguard/internal/service"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	repo       string
	configPath string
	logLevel   string
}

// NewRootCommand creates and returns the root cobra command for driftguard
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "driftguard",
		Short: "Keep repository documentation in step with its code",
		Long: `driftguard checks that a repository carries its governance documents,
detects code changes that were not reflected in the documentation freshness
marker, and runs the verification commands listed in the instructions
document.

Run "driftguard serve" to expose these operations as MCP tools over stdio.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.repo, "repo", "", "Repository root (default: current directory)")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default: <repo>/.driftguard/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewContractCommand(opts))
	cmd.AddCommand(NewDriftCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewProfilesCommand(opts))

	return cmd
}

// repoRoot returns the --repo value, or the working directory.
func (o *globalOptions) repoRoot() (string, error) {
	if o.repo != "" {
		return o.repo, nil
	}
	return os.Getwd()
}

// loadConfig reads configuration for logger setup. Errors fall back to
// defaults; the operation itself reports invalid configuration.
func (o *globalOptions) loadConfig(root string) *config.Config {
	var cfg *config.Config
	var err error
	if o.configPath != "" {
		cfg, err = config.LoadConfig(o.configPath)
	} else {
		cfg, err = config.LoadConfigFromDir(root)
	}
	if err != nil {
		cfg = config.DefaultConfig()
	}
	if o.logLevel != "" {
		cfg.MergeWithFlags(&o.logLevel, nil)
	}
	return cfg
}

// newService builds the service and its logger. Logs go to stderr, plus a
// run log when log_dir is configured. The returned cleanup closes the run log.
func (o *globalOptions) newService(cmd *cobra.Command, commandTimeout *time.Duration) (*service.Service, func(), error) {
	root, err := o.repoRoot()
	if err != nil {
		return nil, nil, err
	}
	cfg := o.loadConfig(root)

	var log logger.Logger = logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	cleanup := func() {}

	if cfg.LogDir != "" {
		dir := cfg.LogDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		fileLog, err := logger.NewFileLoggerWithDirAndLevel(dir, cfg.LogLevel)
		if err != nil {
			log.LogWarn("file logging disabled: " + err.Error())
		} else {
			log = logger.NewMultiLogger(log, fileLog)
			cleanup = func() { _ = fileLog.Close() }
		}
	}

	svc := service.New(root,
		service.WithConfigPath(o.configPath),
		service.WithLogger(log),
		service.WithOverrides(func(c *config.Config) {
			var level *string
			if o.logLevel != "" {
				level = &o.logLevel
			}
			c.MergeWithFlags(level, commandTimeout)
		}),
	)
	return svc, cleanup, nil
}

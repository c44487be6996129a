package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// NewVerifyCommand creates the verify command
func NewVerifyCommand(opts *globalOptions) *cobra.Command {
	var asJSON bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "verify [profile]",
		Short: "Run a verification profile from the instructions document",
		Long: `Run the commands of a verification profile in order, stopping at the
first failure. Without an argument the "default" profile runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var timeoutFlag *time.Duration
			if cmd.Flags().Changed("timeout") {
				timeoutFlag = &timeout
			}

			svc, cleanup, err := opts.newService(cmd, timeoutFlag)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			profile := ""
			if len(args) == 1 {
				profile = args[0]
			}

			result, err := svc.VerifyRun(ctx, profile)
			if err != nil {
				return reportError(cmd, asJSON, err)
			}

			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else {
				newPrinter(cmd).Verify(result)
			}
			return finish(result.OverallOK)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-command timeout, overrides verify.command_timeout (0 disables)")
	return cmd
}

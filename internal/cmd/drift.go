package cmd

import (
	"github.com/spf13/cobra"
)

// NewDriftCommand creates the drift command
func NewDriftCommand(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Report code changes not reflected in the freshness marker",
		Long: `Compare the repository's code against the documentation freshness marker
(docs/current_state.md by default). A file counts as changed when it was
modified after the marker, or when it is in the pending git change set while
the marker is not.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := opts.newService(cmd, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			evidence, err := svc.DriftCheck(cmd.Context())
			if err != nil {
				return reportError(cmd, asJSON, err)
			}

			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), evidence); err != nil {
					return err
				}
			} else {
				newPrinter(cmd).Drift(evidence)
			}
			return finish(evidence.OK)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the evidence as JSON")
	return cmd
}

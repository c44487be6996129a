package cmd

import (
	"github.com/spf13/cobra"
)

// NewContractCommand creates the contract command
func NewContractCommand(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "contract",
		Short: "Check the repository contains its required governance files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := opts.newService(cmd, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := svc.ContractValidate(cmd.Context())
			if err != nil {
				return reportError(cmd, asJSON, err)
			}

			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else {
				newPrinter(cmd).Contract(report)
			}
			return finish(report.OK)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

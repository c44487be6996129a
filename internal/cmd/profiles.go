package cmd

import (
	"github.com/spf13/cobra"
)

// NewProfilesCommand creates the profiles command
func NewProfilesCommand(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List the verification profiles in the instructions document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := opts.newService(cmd, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			profiles, err := svc.Profiles(cmd.Context())
			if err != nil {
				return reportError(cmd, asJSON, err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), profiles)
			}
			newPrinter(cmd).Profiles(profiles)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the profiles as JSON")
	return cmd
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the pipeline configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := loadConfig(rootOpts, cmd.ErrOrStderr()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: %s\n", displayPath(rootOpts.ConfigPath))
			return nil
		},
	}
}

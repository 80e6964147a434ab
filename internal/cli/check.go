package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <role> <path>",
		Short: "Check whether a role may write a path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, path := args[0], args[1]
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			ok, err := app.Boundary.CanAccess(role, path)
			if err != nil {
				return err
			}
			if !ok {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s may not write %s\n", role, path)
				return fmt.Errorf("access denied")
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s may write %s\n", role, path)
			return nil
		},
	}
}

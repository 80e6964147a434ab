package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMergeCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "merge <role> [message]",
		Short: "Commit, push, and hand off a role's task branch",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := args[0]
			if len(args) == 2 {
				message = args[1]
			}
			ctx := cmd.Context()
			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			if err := app.Tracker.Merge(ctx, role, message); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Task for %s completed and pushed\n", role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message (default: role and task id)")
	return cmd
}

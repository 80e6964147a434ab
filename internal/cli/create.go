package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCreateCmd() *cobra.Command {
	var lock []string

	cmd := &cobra.Command{
		Use:   "create <role> <task-id>",
		Short: "Create a task branch for an agent role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, taskID := args[0], args[1]
			ctx := cmd.Context()
			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			branch, err := app.Tracker.CreateBranch(ctx, role, taskID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created %s for %s\n", branch, role)
			if len(lock) > 0 {
				locked, err := app.Tracker.ClaimFiles(ctx, role, lock)
				if err != nil {
					return err
				}
				for _, p := range locked {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Locked %s\n", p)
				}
				if len(locked) < len(lock) {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d path(s) outside the role's boundary were not locked\n", len(lock)-len(locked))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&lock, "lock", nil, "Paths to lock for this task")
	return cmd
}

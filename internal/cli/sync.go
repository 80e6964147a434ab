package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "sync [role]",
		Short: "Rebase task branches onto the master branch",
		Long: `Rebase a role's task branch onto the project master branch. With no
role argument every role with an active task is synced.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			if all || len(args) == 0 {
				app.Tracker.SyncActive(ctx)
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Sync round finished")
				return nil
			}
			if err := app.Tracker.Sync(ctx, args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Synced %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Sync every role with an active task")
	return cmd
}

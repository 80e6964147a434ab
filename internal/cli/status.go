package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show agent task statuses and file locks",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			statuses, err := app.Tracker.Status()
			if err != nil {
				return err
			}
			if len(statuses) == 0 {
				_, _ = fmt.Fprintln(out, "No agent tasks")
			} else {
				roles := make([]string, 0, len(statuses))
				for role := range statuses {
					roles = append(roles, role)
				}
				sort.Strings(roles)
				for _, role := range roles {
					st := statuses[role]
					_, _ = fmt.Fprintf(out, "%-12s %-10s %s (task %s)\n", role, st.Status, st.CurrentBranch, st.TaskID)
				}
			}

			locks, err := app.State.Locks()
			if err != nil {
				return err
			}
			if len(locks) > 0 {
				_, _ = fmt.Fprintln(out, "\nLocks:")
				paths := make([]string, 0, len(locks))
				for p := range locks {
					paths = append(paths, p)
				}
				sort.Strings(paths)
				for _, p := range paths {
					_, _ = fmt.Fprintf(out, "  %s -> %s\n", p, locks[p].Owner)
				}
			}
			return nil
		},
	}
}

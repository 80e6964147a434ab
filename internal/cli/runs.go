package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/copp1723/code-team-sub001/internal/store"
	"github.com/copp1723/code-team-sub001/pkg/models"
)

func newRunsCmd() *cobra.Command {
	var limit int
	var last bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded integration runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			audit, err := openAudit(app.Cfg)
			if err != nil {
				return err
			}
			defer func() { _ = audit.Close() }()
			out := cmd.OutOrStdout()

			if last {
				run, err := audit.LastRun(ctx)
				if errors.Is(err, store.ErrRunNotFound) {
					_, _ = fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "Run %s (%s) started %s\n", run.ID, run.Status, run.StartTime.Format("2006-01-02 15:04:05"))
				for _, stage := range models.PipelineStages {
					st := run.Stage(stage)
					if st.Error != "" {
						_, _ = fmt.Fprintf(out, "  %-22s %-10s %s\n", stage, st.Status, st.Error)
					} else {
						_, _ = fmt.Fprintf(out, "  %-22s %s\n", stage, st.Status)
					}
				}
				return nil
			}

			runs, err := audit.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			for _, run := range runs {
				_, _ = fmt.Fprintf(out, "%s  %-10s %s\n", run.StartTime.Format("2006-01-02 15:04:05"), run.Status, run.ID)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", models.DefaultRunListLimit, "Maximum runs to list")
	cmd.Flags().BoolVar(&last, "last", false, "Show the most recent run in detail")
	return cmd
}

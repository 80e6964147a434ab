package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/copp1723/code-team-sub001/internal/pipeline"
	"github.com/copp1723/code-team-sub001/pkg/models"
)

func newIntegrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "integrate [branch...]",
		Short: "Run the integration pipeline over agent branches",
		Long: `Run the seven-stage integration pipeline: fetch, review, validate
boundaries, probe conflicts, merge in priority order, validate the result, and
push to the project master branch. With no arguments every local branch
matching an agent branch prefix is a candidate.`,
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

			branches := args
			if len(branches) == 0 {
				branches, err = discoverBranches(ctx, app)
				if err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			if len(branches) == 0 {
				_, _ = fmt.Fprintln(out, "No agent branches to integrate")
				return nil
			}
			_, _ = fmt.Fprintf(out, "Integrating %d branch(es): %s\n", len(branches), strings.Join(branches, ", "))

			p := pipeline.New(app.Cfg, app.Git, app.Registry, app.Boundary, audit)
			ws, runErr := p.Run(ctx, branches)
			printRun(out, ws)
			return runErr
		},
	}
}

// discoverBranches lists local branches owned by some agent, skipping the
// master and integration branches.
func discoverBranches(ctx context.Context, app *app) ([]string, error) {
	all, err := app.Git.Branches(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, b := range all {
		if b == app.Cfg.ProjectMasterBranch || b == app.Cfg.MasterAgent.Branch {
			continue
		}
		if _, err := app.Registry.RoleForBranch(b); err != nil {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func printRun(out io.Writer, ws *models.WorkflowState) {
	if ws == nil {
		return
	}
	fmt.Fprintf(out, "\nRun %s: %s\n", ws.ID, ws.Status)
	for _, stage := range models.PipelineStages {
		st := ws.Stage(stage)
		if st.Error != "" {
			fmt.Fprintf(out, "  %-22s %-10s %s\n", stage, st.Status, st.Error)
		} else {
			fmt.Fprintf(out, "  %-22s %s\n", stage, st.Status)
		}
	}
	for _, res := range ws.Results {
		switch res.Stage {
		case models.StageValidateBoundaries:
			for _, v := range res.Violations {
				fmt.Fprintf(out, "  violation: %s changed %s (%s)\n", v.Agent, v.File, v.Kind)
			}
		case models.StageValidateIntegration:
			for _, c := range res.Checks {
				fmt.Fprintf(out, "  check %-8s %s\n", c.Name, c.Status)
			}
		case models.StagePush:
			if len(res.Merged) > 0 {
				fmt.Fprintf(out, "  merged: %s\n", strings.Join(res.Merged, ", "))
			}
		}
	}
}

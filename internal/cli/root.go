// Package cli implements the crew command line: task branch lifecycle,
// status, background sync, and the integration pipeline.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/copp1723/code-team-sub001/internal/config"
)

func NewRootCmd(version string) *cobra.Command {
	var configOverride string

	cmd := &cobra.Command{
		Use:          "crew",
		Short:        "Crew — multi-agent repository coordination",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(config.WithPath(cmd.Context(), config.ResolvePath(configOverride)))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configOverride, "config", "", "Config file path (default: ./crew.yaml, env: CREW_CONFIG)")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newMergeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newRunsCmd())
	cmd.AddCommand(newIntegrateCmd())
	cmd.AddCommand(newWatchCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}

	return cmd
}

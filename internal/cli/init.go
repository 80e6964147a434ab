package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/copp1723/code-team-sub001/internal/config"
)

const starterConfig = `# Crew coordinator configuration.
project_path: .
project_master_branch: main

agents:
  definitions:
    backend:
      model: claude-sonnet
      working_paths: ["src/api/", "src/services/"]
      exclude_paths: ["src/api/generated/"]
      branch_prefix: feature/backend
    frontend:
      model: claude-sonnet
      working_paths: ["src/components/", "src/pages/"]
      branch_prefix: feature/frontend
    database:
      model: claude-sonnet
      working_paths: ["db/", "migrations/"]
      branch_prefix: feature/database

master_agent:
  branch: integration/master
  responsibilities:
    integration:
      rollback_on_failure: true

review:
  require_tests: false

validation:
  build_cmd: ""
  test_cmd: ""
  lint_cmd: ""
`

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter crew.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.MustPathFrom(cmd.Context())
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
}

// Package validate runs the integration checks: build, test, lint, and a
// secret scan over the files an integration touched.
package validate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/copp1723/code-team-sub001/internal/config"
	"github.com/copp1723/code-team-sub001/internal/secrets"
	"github.com/copp1723/code-team-sub001/pkg/models"
)

// CommandRunner executes a shell command line in dir and returns its combined output.
type CommandRunner func(ctx context.Context, dir, cmdLine string) (string, error)

// Runner executes the configured checks in the project working tree.
type Runner struct {
	Dir     string
	Cfg     config.ValidationConfig
	Scanner *secrets.Scanner
	// Exec overrides command execution in tests; defaults to sh -c.
	Exec CommandRunner
}

// New returns a Runner for the working tree at dir.
func New(dir string, cfg config.ValidationConfig) *Runner {
	return &Runner{Dir: dir, Cfg: cfg, Scanner: secrets.NewScanner()}
}

// Run executes build, test, and lint commands plus the secret scan over
// changedFiles, and returns one result per check. Build and test failures are
// failed; lint failures are warnings; secret findings are failed.
func (r *Runner) Run(ctx context.Context, changedFiles []string) []models.CheckResult {
	results := []models.CheckResult{
		r.runCommand(ctx, models.CheckBuild, r.Cfg.BuildCmd, models.CheckFailed),
		r.runCommand(ctx, models.CheckTest, r.Cfg.TestCmd, models.CheckFailed),
		r.runCommand(ctx, models.CheckLint, r.Cfg.LintCmd, models.CheckWarning),
		r.scanSecrets(changedFiles),
	}
	for _, res := range results {
		slog.Info("integration check", "check", res.Name, "status", res.Status)
	}
	return results
}

func (r *Runner) runCommand(ctx context.Context, name, cmdLine string, onFailure models.CheckStatus) models.CheckResult {
	if cmdLine == "" {
		return models.CheckResult{Name: name, Status: models.CheckPassed, Output: "not configured"}
	}
	out, err := r.exec(ctx, cmdLine)
	if err != nil {
		return models.CheckResult{
			Name:   name,
			Status: onFailure,
			Output: fmt.Sprintf("%v: %s", err, truncate(out, 2000)),
		}
	}
	return models.CheckResult{Name: name, Status: models.CheckPassed}
}

func (r *Runner) scanSecrets(changedFiles []string) models.CheckResult {
	var lines []string
	for _, file := range changedFiles {
		data, err := os.ReadFile(filepath.Join(r.Dir, filepath.FromSlash(file)))
		if err != nil {
			// Deleted or unreadable files have nothing to scan.
			continue
		}
		for _, f := range r.Scanner.Scan(file, string(data)) {
			lines = append(lines, fmt.Sprintf("%s:%d: %s", f.File, f.Line, f.RuleID))
		}
	}
	if len(lines) > 0 {
		return models.CheckResult{
			Name:   models.CheckSecrets,
			Status: models.CheckFailed,
			Output: strings.Join(lines, "\n"),
		}
	}
	return models.CheckResult{Name: models.CheckSecrets, Status: models.CheckPassed}
}

func (r *Runner) exec(ctx context.Context, cmdLine string) (string, error) {
	if r.Exec != nil {
		return r.Exec(ctx, r.Dir, cmdLine)
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", cmdLine)
	cmd.Dir = r.Dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

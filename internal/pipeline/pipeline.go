// Package pipeline runs the master agent's integration workflow: a fixed
// seven-stage state machine that fetches agent branches, reviews them,
// validates boundaries, probes and resolves conflicts, merges in priority
// order, validates the integrated tree, and pushes to the project master
// branch. Every run is persisted to the audit store, pass or fail.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/copp1723/code-team-sub001/internal/boundary"
	"github.com/copp1723/code-team-sub001/internal/config"
	"github.com/copp1723/code-team-sub001/internal/conflict"
	"github.com/copp1723/code-team-sub001/internal/git"
	"github.com/copp1723/code-team-sub001/internal/orderer"
	"github.com/copp1723/code-team-sub001/internal/otel"
	"github.com/copp1723/code-team-sub001/internal/registry"
	"github.com/copp1723/code-team-sub001/internal/review"
	"github.com/copp1723/code-team-sub001/internal/store"
	"github.com/copp1723/code-team-sub001/internal/validate"
	"github.com/copp1723/code-team-sub001/pkg/models"
)

// ErrStageFailed wraps any stage error that halted a run.
var ErrStageFailed = errors.New("pipeline stage failed")

// ErrPushRefused is returned when the push stage refuses to publish an
// integration whose build check failed. The refusal is unconditional; the
// validation override does not apply to it.
var ErrPushRefused = errors.New("push refused")

// Pipeline executes integration runs. Collaborators are exported so tests can
// substitute fakes; NewID defaults to a random UUID per run.
type Pipeline struct {
	Git       git.Runner
	Registry  *registry.Registry
	Boundary  *boundary.Enforcer
	Review    *review.Gate
	Orderer   *orderer.Orderer
	Resolver  *conflict.Resolver
	Validator *validate.Runner
	Audit     store.Store

	// Base is the project master branch; Branch is the integration branch
	// the run merges onto before publishing.
	Base   string
	Branch string
	Policy config.IntegrationConfig

	NewID func() string
}

// New wires a Pipeline from configuration and shared components.
func New(cfg *config.Config, g git.Runner, reg *registry.Registry, enf *boundary.Enforcer, audit store.Store) *Pipeline {
	return &Pipeline{
		Git:       g,
		Registry:  reg,
		Boundary:  enf,
		Review:    review.New(g, cfg.ProjectMasterBranch, cfg.Review),
		Orderer:   orderer.New(cfg.ConflictResolution.PriorityOrder),
		Resolver:  conflict.New(g, cfg.ProjectPath, cfg.ConflictResolution.LockfileCommands),
		Validator: validate.New(cfg.ProjectPath, cfg.Validation),
		Audit:     audit,
		Base:      cfg.ProjectMasterBranch,
		Branch:    cfg.MasterAgent.Branch,
		Policy:    cfg.MasterAgent.Responsibilities.Integration,
		NewID:     uuid.NewString,
	}
}

// Run executes one integration run over the candidate branches and returns
// the full workflow state. The state is returned even on failure; the error
// reports which stage halted the run. When rollback is enabled, a failed run
// leaves the working tree at the commit recorded before any merge happened.
func (p *Pipeline) Run(ctx context.Context, branches []string) (*models.WorkflowState, error) {
	ws := &models.WorkflowState{
		ID:        p.newID(),
		StartTime: time.Now().UTC(),
		Status:    models.RunRunning,
		Stages:    map[string]models.StageState{},
	}
	slog.Info("integration run started", "run_id", ws.ID, "candidates", len(branches))

	var (
		preHead string
		reviews []models.BranchReview
		passed  []string
		merged  []string
		checks  []models.CheckResult
	)

	steps := []struct {
		name string
		fn   func(context.Context) (models.StageResult, error)
	}{
		{models.StageFetch, func(ctx context.Context) (models.StageResult, error) {
			res := models.StageResult{Branches: branches}
			if err := p.Git.Fetch(ctx); err != nil {
				return res, fmt.Errorf("fetch: %w", err)
			}
			if err := p.checkoutIntegrationBranch(ctx); err != nil {
				return res, err
			}
			head, err := p.Git.Head(ctx)
			if err != nil {
				return res, err
			}
			preHead = head
			res.Notes = append(res.Notes, fmt.Sprintf("integration branch %s at %s", p.Branch, head))
			return res, nil
		}},
		{models.StageReview, func(ctx context.Context) (models.StageResult, error) {
			var res models.StageResult
			for _, branch := range branches {
				rev, err := p.Review.Review(ctx, branch)
				if err != nil {
					return res, err
				}
				reviews = append(reviews, rev)
				if rev.Passed {
					passed = append(passed, branch)
				} else {
					res.Notes = append(res.Notes, fmt.Sprintf("%s held back: %d issue(s)", branch, len(rev.Issues)))
				}
			}
			res.Reviews = reviews
			res.Branches = passed
			return res, nil
		}},
		{models.StageValidateBoundaries, func(ctx context.Context) (models.StageResult, error) {
			var res models.StageResult
			perRole := map[string]int{}
			for _, rev := range reviews {
				violations, err := p.Boundary.ValidateBoundaries(rev)
				if err != nil {
					return res, err
				}
				res.Violations = append(res.Violations, violations...)
				for _, v := range violations {
					perRole[v.Agent]++
				}
			}
			for role, n := range perRole {
				otel.RecordViolations(ctx, role, n)
				slog.Warn("boundary violations", "role", role, "count", n)
			}
			if p.Policy.FatalBoundaryViolations && len(res.Violations) > 0 {
				return res, fmt.Errorf("%d boundary violation(s)", len(res.Violations))
			}
			return res, nil
		}},
		{models.StageCheckConflicts, func(ctx context.Context) (models.StageResult, error) {
			res := models.StageResult{Conflicts: map[string][]string{}}
			for _, branch := range passed {
				paths, err := p.Git.MergeTree(ctx, p.Branch, branch)
				if err != nil {
					return res, fmt.Errorf("conflict probe for %s: %w", branch, err)
				}
				if len(paths) > 0 {
					res.Conflicts[branch] = paths
					res.Notes = append(res.Notes, fmt.Sprintf("%s: %d conflicting path(s)", branch, len(paths)))
				}
			}
			return res, nil
		}},
		{models.StageMerge, func(ctx context.Context) (models.StageResult, error) {
			var res models.StageResult
			ordered := p.Orderer.Order(passed)
			res.Branches = ordered
			for _, branch := range ordered {
				if err := p.mergeBranch(ctx, branch); err != nil {
					return res, err
				}
				merged = append(merged, branch)
				otel.RecordMerge(ctx, p.roleFor(branch))
			}
			res.Merged = merged
			return res, nil
		}},
		{models.StageValidateIntegration, func(ctx context.Context) (models.StageResult, error) {
			var res models.StageResult
			checks = p.Validator.Run(ctx, changedAcross(reviews, merged))
			res.Checks = checks
			if anyFailed(checks) {
				if !p.Policy.AllowValidationOverride {
					return res, errors.New("integration checks failed")
				}
				res.Notes = append(res.Notes, "validation override applied: proceeding despite failed checks")
				slog.Warn("validation override applied", "run_id", ws.ID)
			}
			return res, nil
		}},
		{models.StagePush, func(ctx context.Context) (models.StageResult, error) {
			var res models.StageResult
			for _, c := range checks {
				if c.Name == models.CheckBuild && c.Status == models.CheckFailed {
					return res, fmt.Errorf("%w: build check failed", ErrPushRefused)
				}
			}
			if err := p.publish(ctx, merged); err != nil {
				return res, err
			}
			res.Merged = merged
			res.Notes = append(res.Notes, fmt.Sprintf("pushed %s", p.Base))
			return res, nil
		}},
	}

	var runErr error
	failedStage := ""
	for _, step := range steps {
		if err := p.runStage(ctx, ws, step.name, step.fn); err != nil {
			runErr, failedStage = err, step.name
			break
		}
	}
	now := time.Now().UTC()
	for _, name := range models.PipelineStages {
		if _, ok := ws.Stages[name]; !ok {
			ws.Stages[name] = models.StageState{Status: models.RunSkipped, Timestamp: now}
		}
	}

	if runErr != nil {
		ws.Status = models.RunFailed
		if p.Policy.RollbackOnFailure && preHead != "" {
			p.rollback(ctx, ws.ID, preHead)
		}
	} else {
		ws.Status = models.RunCompleted
	}
	otel.RecordRun(ctx, ws.Status)
	p.persist(ctx, ws)
	slog.Info("integration run finished", "run_id", ws.ID, "status", ws.Status, "merged", len(merged))

	if runErr != nil {
		if errors.Is(runErr, ErrPushRefused) {
			return ws, runErr
		}
		return ws, fmt.Errorf("%w: %s: %v", ErrStageFailed, failedStage, runErr)
	}
	return ws, nil
}

func (p *Pipeline) runStage(ctx context.Context, ws *models.WorkflowState, name string, fn func(context.Context) (models.StageResult, error)) error {
	start := time.Now()
	ws.Stages[name] = models.StageState{Status: models.RunRunning, Timestamp: start.UTC()}
	res, err := fn(ctx)
	res.Stage = name
	ws.Results = append(ws.Results, res)
	state := models.StageState{Timestamp: time.Now().UTC()}
	if err != nil {
		state.Status = models.RunFailed
		state.Error = err.Error()
		ws.Stages[name] = state
		otel.RecordStage(ctx, name, models.RunFailed, time.Since(start))
		slog.Error("pipeline stage failed", "stage", name, "err", err)
		return err
	}
	state.Status = models.RunCompleted
	ws.Stages[name] = state
	otel.RecordStage(ctx, name, models.RunCompleted, time.Since(start))
	slog.Info("pipeline stage completed", "stage", name)
	return nil
}

func (p *Pipeline) checkoutIntegrationBranch(ctx context.Context) error {
	exists, err := p.Git.BranchExists(ctx, p.Branch)
	if err != nil {
		return err
	}
	if exists {
		return p.Git.Checkout(ctx, p.Branch)
	}
	return p.Git.CreateBranch(ctx, p.Branch, p.Base)
}

// mergeBranch merges one agent branch into the integration branch, resolving
// conflicts in place when the merge fails with unmerged paths.
func (p *Pipeline) mergeBranch(ctx context.Context, branch string) error {
	if err := p.Git.Checkout(ctx, p.Branch); err != nil {
		return err
	}
	mergeErr := p.Git.Merge(ctx, branch)
	if mergeErr == nil {
		slog.Info("merged branch", "branch", branch, "into", p.Branch)
		return nil
	}
	files, err := p.Git.ConflictedFiles(ctx)
	if err != nil || len(files) == 0 {
		return fmt.Errorf("merge %s: %w", branch, mergeErr)
	}
	resolution, err := p.Resolver.Resolve(ctx, branch, files)
	if err != nil {
		return fmt.Errorf("merge %s: %w", branch, err)
	}
	if _, err := p.Git.CommitAll(ctx, resolution.CommitMessage()); err != nil {
		return fmt.Errorf("commit resolution for %s: %w", branch, err)
	}
	for _, f := range resolution.Files {
		otel.RecordConflictResolved(ctx, f.Strategy)
	}
	slog.Info("merged branch with conflict resolution",
		"branch", branch, "into", p.Branch, "resolved", len(resolution.Files))
	return nil
}

// publish merges the integration branch into the project master branch,
// pushes it, then cleans up: remote agent branches are deleted and their
// roles' file locks released.
func (p *Pipeline) publish(ctx context.Context, merged []string) error {
	if err := p.Git.Checkout(ctx, p.Base); err != nil {
		return err
	}
	if err := p.Git.Merge(ctx, p.Branch); err != nil {
		return fmt.Errorf("merge %s into %s: %w", p.Branch, p.Base, err)
	}
	if err := p.Git.Push(ctx, p.Base); err != nil {
		return fmt.Errorf("push %s: %w", p.Base, err)
	}
	for _, branch := range merged {
		if err := p.Git.DeleteRemoteBranch(ctx, branch); err != nil {
			slog.Warn("remote branch cleanup failed", "branch", branch, "err", err)
		}
		role, err := p.Registry.RoleForBranch(branch)
		if err != nil {
			continue
		}
		released, err := p.Boundary.Unlock(role)
		if err != nil {
			slog.Warn("lock release failed", "role", role, "err", err)
			continue
		}
		if len(released) > 0 {
			slog.Info("released locks after integration", "role", role, "count", len(released))
		}
	}
	return nil
}

func (p *Pipeline) rollback(ctx context.Context, runID, preHead string) {
	slog.Warn("rolling back failed integration", "run_id", runID, "head", preHead)
	if err := p.Git.ResetHard(ctx, preHead); err != nil {
		slog.Error("rollback reset failed", "run_id", runID, "err", err)
		return
	}
	if err := p.Git.CleanUntracked(ctx); err != nil {
		slog.Error("rollback clean failed", "run_id", runID, "err", err)
	}
}

func (p *Pipeline) persist(ctx context.Context, ws *models.WorkflowState) {
	if p.Audit == nil {
		return
	}
	if err := p.Audit.SaveRun(ctx, ws); err != nil {
		slog.Error("audit persist failed", "run_id", ws.ID, "err", err)
	}
}

func (p *Pipeline) newID() string {
	if p.NewID != nil {
		return p.NewID()
	}
	return uuid.NewString()
}

func (p *Pipeline) roleFor(branch string) string {
	role, err := p.Registry.RoleForBranch(branch)
	if err != nil {
		return "unknown"
	}
	return role
}

// changedAcross unions the changed files of the merged branches, preserving
// first-seen order.
func changedAcross(reviews []models.BranchReview, merged []string) []string {
	inMerged := map[string]bool{}
	for _, b := range merged {
		inMerged[b] = true
	}
	seen := map[string]bool{}
	var files []string
	for _, rev := range reviews {
		if !inMerged[rev.Branch] {
			continue
		}
		for _, f := range rev.Files {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	return files
}

func anyFailed(checks []models.CheckResult) bool {
	for _, c := range checks {
		if c.Status == models.CheckFailed {
			return true
		}
	}
	return false
}

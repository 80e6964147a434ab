// Package tracker manages the lifecycle of one version-control branch per
// active agent task: create, sync (rebase onto base), and merge-ready handoff.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/copp1723/code-team-sub001/internal/boundary"
	"github.com/copp1723/code-team-sub001/internal/git"
	"github.com/copp1723/code-team-sub001/internal/otel"
	"github.com/copp1723/code-team-sub001/internal/registry"
	"github.com/copp1723/code-team-sub001/internal/state"
	"github.com/copp1723/code-team-sub001/pkg/models"
)

// ErrBranchCreation wraps VCS failures while creating a task branch.
var ErrBranchCreation = errors.New("branch creation failed")

// ErrNoActiveTask is returned when a role has no active task branch.
var ErrNoActiveTask = errors.New("no active task for role")

// PRCreator opens a pull request for a pushed branch. Optional; when absent
// or failing, Merge degrades to "pushed, create PR manually".
type PRCreator func(ctx context.Context, branch, message string) error

// Tracker records per-role task status and drives branch operations through
// the VCS port. The mutex serializes branch mutations so a background sync
// round cannot interleave with an in-flight merge.
type Tracker struct {
	mu sync.Mutex

	Registry *registry.Registry
	Boundary *boundary.Enforcer
	Git      git.Runner
	State    *state.Store
	Base     string
	CreatePR PRCreator
}

// New returns a Tracker for the given base branch.
func New(reg *registry.Registry, enf *boundary.Enforcer, g git.Runner, st *state.Store, base string) *Tracker {
	return &Tracker{Registry: reg, Boundary: enf, Git: g, State: st, Base: base}
}

// CreateBranch checks out a new branch named {branchPrefix}/{taskID} from the
// base branch and records an active task status for the role.
func (t *Tracker) CreateBranch(ctx context.Context, role, taskID string) (string, error) {
	def, err := t.Registry.Get(role)
	if err != nil {
		return "", err
	}
	branch := fmt.Sprintf("%s/%s", def.BranchPrefix, taskID)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.Git.CreateBranch(ctx, branch, t.Base); err != nil {
		slog.Error("branch creation failed", "role", role, "branch", branch, "err", err)
		return "", fmt.Errorf("%w: %v", ErrBranchCreation, err)
	}
	err = t.State.SetStatus(role, models.AgentTaskStatus{
		Role:          role,
		CurrentBranch: branch,
		TaskID:        taskID,
		StartTime:     time.Now().UTC(),
		Status:        models.TaskActive,
	})
	if err != nil {
		return "", err
	}
	slog.Info("created task branch", "role", role, "branch", branch, "task_id", taskID)
	return branch, nil
}

// ClaimFiles locks paths for the role's current task and returns the subset
// actually locked.
func (t *Tracker) ClaimFiles(ctx context.Context, role string, paths []string) ([]string, error) {
	return t.Boundary.Lock(role, paths)
}

// Sync stashes uncommitted work, fetches, rebases the role's branch onto the
// base branch, and restores the stash. On rebase failure the rebase is
// aborted before the error is surfaced; no partial-rebase state is left behind.
func (t *Tracker) Sync(ctx context.Context, role string) error {
	st, err := t.activeStatus(role)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.Git.Checkout(ctx, st.CurrentBranch); err != nil {
		return err
	}
	stashed, err := t.Git.Stash(ctx)
	if err != nil {
		return err
	}
	restore := func() {
		if !stashed {
			return
		}
		if err := t.Git.StashPop(ctx); err != nil {
			slog.Error("stash restore failed", "role", role, "branch", st.CurrentBranch, "err", err)
		}
	}
	if err := t.Git.Fetch(ctx); err != nil {
		restore()
		return err
	}
	if err := t.Git.Rebase(ctx, "origin/"+t.Base); err != nil {
		if abortErr := t.Git.AbortRebase(ctx); abortErr != nil {
			slog.Error("rebase abort failed", "role", role, "branch", st.CurrentBranch, "err", abortErr)
		}
		restore()
		return fmt.Errorf("rebase %s onto %s: %w", st.CurrentBranch, t.Base, err)
	}
	restore()
	otel.RecordSync(ctx, role)
	slog.Info("synced branch", "role", role, "branch", st.CurrentBranch)
	return nil
}

// Merge commits pending changes, pushes the branch, marks the task completed,
// and releases the role's file locks. PR creation degrades to a log line when
// no PRCreator is configured or the call fails.
func (t *Tracker) Merge(ctx context.Context, role, message string) error {
	st, err := t.activeStatus(role)
	if err != nil {
		return err
	}
	if message == "" {
		message = fmt.Sprintf("%s: complete task %s", role, st.TaskID)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.Git.Checkout(ctx, st.CurrentBranch); err != nil {
		return err
	}
	if _, err := t.Git.CommitAll(ctx, message); err != nil {
		return err
	}
	if err := t.Git.Push(ctx, st.CurrentBranch); err != nil {
		return err
	}
	if t.CreatePR != nil {
		if err := t.CreatePR(ctx, st.CurrentBranch, message); err != nil {
			slog.Warn("pull request creation unavailable; branch pushed, create PR manually",
				"role", role, "branch", st.CurrentBranch, "err", err)
		}
	} else {
		slog.Info("branch pushed, create PR manually", "role", role, "branch", st.CurrentBranch)
	}

	now := time.Now().UTC()
	st.Status = models.TaskCompleted
	st.CompletedAt = &now
	if err := t.State.SetStatus(role, st); err != nil {
		return err
	}
	released, err := t.Boundary.Unlock(role)
	if err != nil {
		return err
	}
	slog.Info("task merged", "role", role, "branch", st.CurrentBranch, "locks_released", len(released))
	return nil
}

// Status returns the current task status for every role that has one.
func (t *Tracker) Status() (map[string]models.AgentTaskStatus, error) {
	return t.State.Statuses()
}

// SyncActive syncs every role with an active task. Errors are logged per role
// and do not stop the round.
func (t *Tracker) SyncActive(ctx context.Context) {
	statuses, err := t.State.Statuses()
	if err != nil {
		slog.Error("sync round: read statuses failed", "err", err)
		return
	}
	for role, st := range statuses {
		if st.Status != models.TaskActive {
			continue
		}
		if err := t.Sync(ctx, role); err != nil {
			slog.Error("sync round: sync failed", "role", role, "branch", st.CurrentBranch, "err", err)
		}
	}
}

func (t *Tracker) activeStatus(role string) (models.AgentTaskStatus, error) {
	statuses, err := t.State.Statuses()
	if err != nil {
		return models.AgentTaskStatus{}, err
	}
	st, ok := statuses[role]
	if !ok || st.Status != models.TaskActive || st.CurrentBranch == "" {
		return models.AgentTaskStatus{}, fmt.Errorf("%w: %q", ErrNoActiveTask, role)
	}
	return st, nil
}

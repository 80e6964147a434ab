// Package models provides the shared coordination types: agent definitions,
// file locks, branch lifecycle status, reviews, and pipeline workflow state.
// These types mirror the persisted JSON documents and are stable for external tools.
package models

import "time"

// AgentDefinition is the static definition of one agent role: which paths it
// may touch, which model backs it, and the branch prefix its tasks use.
// Loaded once from configuration at startup; immutable afterwards.
type AgentDefinition struct {
	Role         string   `json:"role"`
	Model        string   `json:"model"`
	WorkingPaths []string `json:"working_paths"`
	ExcludePaths []string `json:"exclude_paths,omitempty"`
	BranchPrefix string   `json:"branch_prefix"`
	Tags         []string `json:"tags,omitempty"`
}

// FileLock records exclusive ownership of a path by an agent role.
// At most one lock may exist per path at a time.
type FileLock struct {
	Path     string    `json:"path"`
	Owner    string    `json:"owner"`
	LockedAt time.Time `json:"locked_at"`
}

// AgentTaskStatus is the lifecycle state of one agent's current task.
// One entry per role at a time; an agent cannot run two tasks concurrently.
type AgentTaskStatus struct {
	Role          string     `json:"role"`
	CurrentBranch string     `json:"current_branch"`
	TaskID        string     `json:"task_id"`
	StartTime     time.Time  `json:"start_time"`
	Status        string     `json:"status"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// BranchReview is the verdict for one branch's changed-file set against
// review policy. Immutable after creation; one per integration attempt.
type BranchReview struct {
	Branch string   `json:"branch"`
	Files  []string `json:"files"`
	Passed bool     `json:"passed"`
	Issues []string `json:"issues,omitempty"`
}

// ViolationKind classifies a boundary violation.
type ViolationKind string

const (
	ViolationNotAllowed ViolationKind = "not-allowed"
	ViolationExcluded   ViolationKind = "excluded"
)

// BoundaryViolation reports a file changed outside the owning agent's
// boundary. Violations are reported, not fatal, unless policy says otherwise.
type BoundaryViolation struct {
	Branch string        `json:"branch"`
	Agent  string        `json:"agent"`
	File   string        `json:"file"`
	Kind   ViolationKind `json:"kind"`
}

// CheckStatus is the aggregate status of one integration check (build, test, lint, secrets).
type CheckStatus string

const (
	CheckPassed  CheckStatus = "passed"
	CheckWarning CheckStatus = "warning"
	CheckFailed  CheckStatus = "failed"
)

// CheckResult is the outcome of one integration validation check.
type CheckResult struct {
	Name   string      `json:"name"`
	Status CheckStatus `json:"status"`
	Output string      `json:"output,omitempty"`
}

// StageState records the status and timestamp of one pipeline stage.
type StageState struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// StageResult carries the data a stage produced. Only the fields relevant to
// the stage are populated.
type StageResult struct {
	Stage      string              `json:"stage"`
	Branches   []string            `json:"branches,omitempty"`
	Reviews    []BranchReview      `json:"reviews,omitempty"`
	Violations []BoundaryViolation `json:"violations,omitempty"`
	Conflicts  map[string][]string `json:"conflicts,omitempty"`
	Merged     []string            `json:"merged,omitempty"`
	Checks     []CheckResult       `json:"checks,omitempty"`
	Notes      []string            `json:"notes,omitempty"`
}

// WorkflowState is the full record of one integration pipeline run.
// Append-only while the run is in progress; persisted pass or fail for audit.
type WorkflowState struct {
	ID        string                `json:"id"`
	StartTime time.Time             `json:"start_time"`
	Status    string                `json:"status"`
	Stages    map[string]StageState `json:"stages"`
	Results   []StageResult         `json:"results"`
}

// Stage returns the recorded state for a stage name, or a zero StageState.
func (w *WorkflowState) Stage(name string) StageState {
	if w == nil || w.Stages == nil {
		return StageState{}
	}
	return w.Stages[name]
}

// Check returns the named check result from the validate-integration stage,
// or nil when the stage has not run or did not record it.
func (w *WorkflowState) Check(name string) *CheckResult {
	if w == nil {
		return nil
	}
	for i := range w.Results {
		if w.Results[i].Stage != StageValidateIntegration {
			continue
		}
		for j := range w.Results[i].Checks {
			if w.Results[i].Checks[j].Name == name {
				return &w.Results[i].Checks[j]
			}
		}
	}
	return nil
}

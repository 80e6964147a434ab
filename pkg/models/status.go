package models

// Agent task statuses used throughout the codebase.
const (
	TaskActive    = "active"
	TaskCompleted = "completed"
	TaskFailed    = "failed"
)

// Pipeline stage names, in execution order.
const (
	StageFetch               = "fetch"
	StageReview              = "review"
	StageValidateBoundaries  = "validate-boundaries"
	StageCheckConflicts      = "check-conflicts"
	StageMerge               = "merge"
	StageValidateIntegration = "validate-integration"
	StagePush                = "push"
)

// Stage and run statuses.
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
	RunSkipped   = "skipped"
)

// Integration check names.
const (
	CheckBuild   = "build"
	CheckTest    = "test"
	CheckLint    = "lint"
	CheckSecrets = "secrets"
)

// Conflict resolution strategies recorded in resolution commits.
const (
	StrategyRegenerateLockfile = "regenerate-lockfile"
	StrategyShallowMerge       = "shallow-merge"
	StrategyIncomingWins       = "incoming-wins"
)

// Default limits.
const (
	DefaultDocsFileThreshold = 10
	DefaultRunListLimit      = 50
)

// PipelineStages lists the stage names in execution order.
var PipelineStages = []string{
	StageFetch,
	StageReview,
	StageValidateBoundaries,
	StageCheckConflicts,
	StageMerge,
	StageValidateIntegration,
	StagePush,
}

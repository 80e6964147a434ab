// Package git defines the narrow version-control port the coordinator drives,
// plus an exec-based implementation and an in-memory fake for tests. The
// pipeline and tracker only ever talk to the Runner interface, so their logic
// is testable without a real repository.
package git

import "context"

// Side selects one side of a conflicted file.
type Side string

const (
	SideOurs   Side = "ours"
	SideTheirs Side = "theirs"
)

// Runner is the version-control command surface. Implementations: *Repo
// (shells out to git) and *Fake (in-memory, for tests).
type Runner interface {
	// Head returns the current commit SHA.
	Head(ctx context.Context) (string, error)
	// CurrentBranch returns the checked-out branch name.
	CurrentBranch(ctx context.Context) (string, error)
	// Branches lists local branch names.
	Branches(ctx context.Context) ([]string, error)
	// BranchExists reports whether a local branch exists.
	BranchExists(ctx context.Context, branch string) (bool, error)

	// Checkout switches to an existing branch.
	Checkout(ctx context.Context, branch string) error
	// CreateBranch creates branch from base and checks it out.
	CreateBranch(ctx context.Context, branch, base string) error
	// Fetch updates remote refs.
	Fetch(ctx context.Context) error

	// Rebase rebases the current branch onto the given ref.
	Rebase(ctx context.Context, onto string) error
	// AbortRebase aborts an in-progress rebase.
	AbortRebase(ctx context.Context) error
	// Stash saves uncommitted work; returns false when there was nothing to stash.
	Stash(ctx context.Context) (bool, error)
	// StashPop restores the most recent stash.
	StashPop(ctx context.Context) error

	// CommitAll stages everything and commits; returns false when the tree was clean.
	CommitAll(ctx context.Context, message string) (bool, error)
	// Merge merges branch into the current branch.
	Merge(ctx context.Context, branch string) error
	// MergeTree dry-runs a merge of branch onto base without touching the
	// working tree and returns the conflicted paths (empty means clean).
	MergeTree(ctx context.Context, base, branch string) ([]string, error)

	// ChangedFiles lists paths changed on branch since it diverged from base.
	ChangedFiles(ctx context.Context, base, branch string) ([]string, error)
	// ConflictedFiles lists unmerged paths in the working tree.
	ConflictedFiles(ctx context.Context) ([]string, error)
	// Show returns the content of path at ref.
	Show(ctx context.Context, ref, path string) ([]byte, error)
	// CheckoutSide resolves a conflicted path to one side.
	CheckoutSide(ctx context.Context, side Side, path string) error
	// Add stages paths.
	Add(ctx context.Context, paths ...string) error

	// Push pushes branch to the remote, setting upstream.
	Push(ctx context.Context, branch string) error
	// DeleteRemoteBranch deletes branch on the remote.
	DeleteRemoteBranch(ctx context.Context, branch string) error

	// ResetHard resets the working tree to ref.
	ResetHard(ctx context.Context, ref string) error
	// CleanUntracked removes untracked files and directories.
	CleanUntracked(ctx context.Context) error
}

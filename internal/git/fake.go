package git

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Fake is an in-memory Runner for tests. Configure branch topology, changed
// files, and failure injection; assert against the recorded call log.
type Fake struct {
	mu sync.Mutex

	HeadSHA   string
	Current   string
	Local     map[string]bool
	Remote    map[string]bool
	Changed   map[string][]string // branch -> files changed vs base
	Conflicts map[string][]string // branch -> merge-tree conflict paths
	MergeErr  map[string]error    // branch -> injected merge failure
	Unmerged  map[string][]string // branch -> working-tree conflicts after a failed merge
	Contents  map[string]string   // "ref:path" -> file content for Show

	FetchErr     error
	RebaseErr    error
	CheckoutErr  map[string]error
	PushErr      error
	StashChanges bool

	calls       []string
	lastFailed  string // branch whose merge last failed
	commitCount int
}

var _ Runner = (*Fake)(nil)

// NewFake returns a Fake positioned on base with the given HEAD.
func NewFake(base, head string) *Fake {
	return &Fake{
		HeadSHA:   head,
		Current:   base,
		Local:     map[string]bool{base: true},
		Remote:    map[string]bool{},
		Changed:   map[string][]string{},
		Conflicts: map[string][]string{},
		MergeErr:  map[string]error{},
		Unmerged:  map[string][]string{},
		Contents:  map[string]string{},
	}
}

func (f *Fake) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

// Calls returns the recorded operations in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Called reports whether any recorded call has the given prefix.
func (f *Fake) Called(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (f *Fake) Head(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.HeadSHA, nil
}

func (f *Fake) CurrentBranch(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Current, nil
}

func (f *Fake) Branches(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for b := range f.Local {
		names = append(names, b)
	}
	sort.Strings(names)
	return names, nil
}

func (f *Fake) BranchExists(ctx context.Context, branch string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Local[branch], nil
}

func (f *Fake) Checkout(ctx context.Context, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("checkout %s", branch)
	if err := f.CheckoutErr[branch]; err != nil {
		return err
	}
	if !f.Local[branch] {
		return fmt.Errorf("git checkout: unknown branch %q", branch)
	}
	f.Current = branch
	return nil
}

func (f *Fake) CreateBranch(ctx context.Context, branch, base string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create-branch %s from %s", branch, base)
	if err := f.CheckoutErr[branch]; err != nil {
		return err
	}
	if !f.Local[base] {
		return fmt.Errorf("git checkout -b: unknown base %q", base)
	}
	f.Local[branch] = true
	f.Current = branch
	return nil
}

func (f *Fake) Fetch(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("fetch")
	return f.FetchErr
}

func (f *Fake) Rebase(ctx context.Context, onto string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("rebase %s", onto)
	return f.RebaseErr
}

func (f *Fake) AbortRebase(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("rebase-abort")
	return nil
}

func (f *Fake) Stash(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stash")
	return f.StashChanges, nil
}

func (f *Fake) StashPop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stash-pop")
	return nil
}

func (f *Fake) CommitAll(ctx context.Context, message string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("commit %q", message)
	f.commitCount++
	f.HeadSHA = fmt.Sprintf("%s+%d", f.HeadSHA, f.commitCount)
	return true, nil
}

func (f *Fake) Merge(ctx context.Context, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("merge %s into %s", branch, f.Current)
	if err := f.MergeErr[branch]; err != nil {
		f.lastFailed = branch
		return err
	}
	return nil
}

func (f *Fake) MergeTree(ctx context.Context, base, branch string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("merge-tree %s %s", base, branch)
	return f.Conflicts[branch], nil
}

func (f *Fake) ChangedFiles(ctx context.Context, base, branch string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Changed[branch], nil
}

func (f *Fake) ConflictedFiles(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastFailed == "" {
		return nil, nil
	}
	return f.Unmerged[f.lastFailed], nil
}

func (f *Fake) Show(ctx context.Context, ref, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.Contents[ref+":"+path]
	if !ok {
		return nil, fmt.Errorf("git show %s:%s: not found", ref, path)
	}
	return []byte(content), nil
}

func (f *Fake) CheckoutSide(ctx context.Context, side Side, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("checkout-%s %s", side, path)
	return nil
}

func (f *Fake) Add(ctx context.Context, paths ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("add %s", strings.Join(paths, " "))
	return nil
}

func (f *Fake) Push(ctx context.Context, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("push %s", branch)
	if f.PushErr != nil {
		return f.PushErr
	}
	f.Remote[branch] = true
	return nil
}

func (f *Fake) DeleteRemoteBranch(ctx context.Context, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete-remote %s", branch)
	delete(f.Remote, branch)
	return nil
}

func (f *Fake) ResetHard(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("reset-hard %s", ref)
	f.HeadSHA = ref
	f.lastFailed = ""
	return nil
}

func (f *Fake) CleanUntracked(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("clean")
	return nil
}

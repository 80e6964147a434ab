package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Repo drives git in Dir via the git binary.
type Repo struct {
	Dir    string
	Remote string // defaults to "origin"
}

var _ Runner = (*Repo)(nil)

func (r *Repo) remote() string {
	if r.Remote == "" {
		return "origin"
	}
	return r.Remote
}

// run executes git with args in the repo directory, returning combined output.
func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

func (r *Repo) Head(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (r *Repo) Branches(ctx context.Context) ([]string, error) {
	out, err := r.run(ctx, "for-each-ref", "--format=%(refname:short)", "refs/heads")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func (r *Repo) BranchExists(ctx context.Context, branch string) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	cmd.Dir = r.Dir
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return false, nil
		}
		return false, fmt.Errorf("git show-ref: %w", err)
	}
	return true, nil
}

func (r *Repo) Checkout(ctx context.Context, branch string) error {
	_, err := r.run(ctx, "checkout", branch)
	return err
}

func (r *Repo) CreateBranch(ctx context.Context, branch, base string) error {
	_, err := r.run(ctx, "checkout", "-b", branch, base)
	return err
}

func (r *Repo) Fetch(ctx context.Context) error {
	_, err := r.run(ctx, "fetch", r.remote())
	return err
}

func (r *Repo) Rebase(ctx context.Context, onto string) error {
	_, err := r.run(ctx, "rebase", onto)
	return err
}

func (r *Repo) AbortRebase(ctx context.Context) error {
	_, err := r.run(ctx, "rebase", "--abort")
	return err
}

func (r *Repo) Stash(ctx context.Context) (bool, error) {
	out, err := r.run(ctx, "stash", "push", "--include-untracked")
	if err != nil {
		return false, err
	}
	return !strings.Contains(out, "No local changes to save"), nil
}

func (r *Repo) StashPop(ctx context.Context) error {
	_, err := r.run(ctx, "stash", "pop")
	return err
}

func (r *Repo) CommitAll(ctx context.Context, message string) (bool, error) {
	if _, err := r.run(ctx, "add", "-A"); err != nil {
		return false, err
	}
	out, err := r.run(ctx, "commit", "-m", message)
	if err != nil {
		if strings.Contains(out, "nothing to commit") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *Repo) Merge(ctx context.Context, branch string) error {
	_, err := r.run(ctx, "merge", "--no-ff", branch)
	return err
}

// MergeTree uses `git merge-tree --write-tree` which exits 1 and lists the
// conflicted paths when the merge would not be clean, all without mutating
// the working tree.
func (r *Repo) MergeTree(ctx context.Context, base, branch string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "merge-tree", "--write-tree", "--name-only", "--no-messages", base, branch)
	cmd.Dir = r.Dir
	out, err := cmd.CombinedOutput()
	lines := splitLines(string(out))
	if err == nil {
		return nil, nil
	}
	if ee, ok := err.(*exec.ExitError); ok && ee.ExitCode() == 1 && len(lines) > 0 {
		// First line is the partial tree OID; the rest are conflicted paths.
		return lines[1:], nil
	}
	return nil, fmt.Errorf("git merge-tree: %w: %s", err, strings.TrimSpace(string(out)))
}

func (r *Repo) ChangedFiles(ctx context.Context, base, branch string) ([]string, error) {
	out, err := r.run(ctx, "diff", "--name-only", base+"..."+branch)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func (r *Repo) ConflictedFiles(ctx context.Context) ([]string, error) {
	out, err := r.run(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func (r *Repo) Show(ctx context.Context, ref, path string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", "show", ref+":"+path)
	cmd.Dir = r.Dir
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git show %s:%s: %w", ref, path, err)
	}
	return out, nil
}

func (r *Repo) CheckoutSide(ctx context.Context, side Side, path string) error {
	_, err := r.run(ctx, "checkout", "--"+string(side), "--", path)
	return err
}

func (r *Repo) Add(ctx context.Context, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	_, err := r.run(ctx, args...)
	return err
}

func (r *Repo) Push(ctx context.Context, branch string) error {
	_, err := r.run(ctx, "push", "-u", r.remote(), branch)
	return err
}

func (r *Repo) DeleteRemoteBranch(ctx context.Context, branch string) error {
	_, err := r.run(ctx, "push", r.remote(), "--delete", branch)
	return err
}

func (r *Repo) ResetHard(ctx context.Context, ref string) error {
	_, err := r.run(ctx, "reset", "--hard", ref)
	return err
}

func (r *Repo) CleanUntracked(ctx context.Context) error {
	_, err := r.run(ctx, "clean", "-fd")
	return err
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

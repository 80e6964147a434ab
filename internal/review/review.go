// Package review inspects a branch's changed-file set against review policy.
// Policy violations are data on the verdict, never errors; Review only fails
// on VCS access problems.
package review

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/copp1723/code-team-sub001/internal/config"
	"github.com/copp1723/code-team-sub001/internal/git"
	"github.com/copp1723/code-team-sub001/pkg/models"
)

// Gate reviews branches against the base branch.
type Gate struct {
	Git    git.Runner
	Base   string
	Policy config.ReviewConfig
}

// New returns a Gate diffing against base.
func New(g git.Runner, base string, policy config.ReviewConfig) *Gate {
	return &Gate{Git: g, Base: base, Policy: policy}
}

// Review computes the branch's changed files and applies policy:
// a non-empty changeset needs a test-looking file when tests are required,
// and a changeset above the docs threshold needs a documentation change.
func (g *Gate) Review(ctx context.Context, branch string) (models.BranchReview, error) {
	files, err := g.Git.ChangedFiles(ctx, g.Base, branch)
	if err != nil {
		return models.BranchReview{}, fmt.Errorf("changed files for %s: %w", branch, err)
	}
	review := models.BranchReview{Branch: branch, Files: files, Passed: true}

	if g.Policy.RequireTests && len(files) > 0 && !anyTestFile(files) {
		review.Issues = append(review.Issues, "no test file in changeset (tests required by policy)")
	}
	threshold := g.Policy.DocsFileThreshold
	if threshold <= 0 {
		threshold = models.DefaultDocsFileThreshold
	}
	if len(files) > threshold && !anyDocFile(files) {
		review.Issues = append(review.Issues,
			fmt.Sprintf("changeset of %d files exceeds %d without a documentation change", len(files), threshold))
	}
	review.Passed = len(review.Issues) == 0
	return review, nil
}

func anyTestFile(files []string) bool {
	for _, f := range files {
		if isTestFile(f) {
			return true
		}
	}
	return false
}

func isTestFile(file string) bool {
	base := strings.ToLower(path.Base(file))
	if strings.Contains(base, "_test.") || strings.Contains(base, ".test.") || strings.Contains(base, ".spec.") {
		return true
	}
	for _, seg := range strings.Split(strings.ToLower(file), "/") {
		switch seg {
		case "test", "tests", "__tests__", "spec":
			return true
		}
	}
	return false
}

func anyDocFile(files []string) bool {
	for _, f := range files {
		lower := strings.ToLower(f)
		ext := path.Ext(lower)
		if ext == ".md" || ext == ".rst" || ext == ".adoc" {
			return true
		}
		if strings.HasPrefix(lower, "docs/") || strings.Contains(lower, "/docs/") {
			return true
		}
	}
	return false
}

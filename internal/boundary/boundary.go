// Package boundary enforces per-role write boundaries: each role may only
// touch paths matching its working globs, outside its exclude globs, and not
// locked by another role. The lock table lives in the shared state store.
package boundary

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/copp1723/code-team-sub001/internal/registry"
	"github.com/copp1723/code-team-sub001/internal/state"
	"github.com/copp1723/code-team-sub001/pkg/models"
)

// Enforcer answers access questions and manages file locks for agent roles.
type Enforcer struct {
	Registry *registry.Registry
	State    *state.Store
}

// New returns an Enforcer over the given registry and state store.
func New(reg *registry.Registry, st *state.Store) *Enforcer {
	return &Enforcer{Registry: reg, State: st}
}

// CanAccess reports whether role may write path: the path must match at least
// one working glob, match no exclude glob, and be unlocked or locked by role.
func (e *Enforcer) CanAccess(role, path string) (bool, error) {
	def, err := e.Registry.Get(role)
	if err != nil {
		return false, err
	}
	if !withinBoundary(def, path) {
		return false, nil
	}
	locks, err := e.State.Locks()
	if err != nil {
		return false, err
	}
	if lock, ok := locks[normalize(path)]; ok && lock.Owner != role {
		return false, nil
	}
	return true, nil
}

// Lock records a lock for every path role can access and returns the subset
// actually locked. Paths that fail the access check are skipped silently.
func (e *Enforcer) Lock(role string, paths []string) ([]string, error) {
	def, err := e.Registry.Get(role)
	if err != nil {
		return nil, err
	}
	var locked []string
	now := time.Now().UTC()
	err = e.State.UpdateLocks(func(locks map[string]models.FileLock) {
		for _, p := range paths {
			norm := normalize(p)
			if !withinBoundary(def, norm) {
				continue
			}
			if lock, ok := locks[norm]; ok && lock.Owner != role {
				continue
			}
			locks[norm] = models.FileLock{Path: norm, Owner: role, LockedAt: now}
			locked = append(locked, norm)
		}
	})
	if err != nil {
		return nil, err
	}
	return locked, nil
}

// Unlock releases every lock held by role and returns the released paths.
// Idempotent: unlocking a role with no locks is a no-op.
func (e *Enforcer) Unlock(role string) ([]string, error) {
	var released []string
	err := e.State.UpdateLocks(func(locks map[string]models.FileLock) {
		for path, lock := range locks {
			if lock.Owner == role {
				released = append(released, path)
				delete(locks, path)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// ValidateBoundaries re-derives the owning role from the review's branch name
// and reports every changed file outside that role's boundary. Violations are
// data for the caller; they do not block anything here.
func (e *Enforcer) ValidateBoundaries(review models.BranchReview) ([]models.BoundaryViolation, error) {
	role, err := e.Registry.RoleForBranch(review.Branch)
	if err != nil {
		return nil, err
	}
	def, err := e.Registry.Get(role)
	if err != nil {
		return nil, err
	}
	var violations []models.BoundaryViolation
	for _, file := range review.Files {
		norm := normalize(file)
		switch {
		case matchesAny(def.ExcludePaths, norm):
			violations = append(violations, models.BoundaryViolation{
				Branch: review.Branch, Agent: role, File: norm, Kind: models.ViolationExcluded,
			})
		case !matchesAny(def.WorkingPaths, norm):
			violations = append(violations, models.BoundaryViolation{
				Branch: review.Branch, Agent: role, File: norm, Kind: models.ViolationNotAllowed,
			})
		}
	}
	return violations, nil
}

func withinBoundary(def models.AgentDefinition, path string) bool {
	norm := normalize(path)
	return matchesAny(def.WorkingPaths, norm) && !matchesAny(def.ExcludePaths, norm)
}

func matchesAny(globs []string, path string) bool {
	for _, g := range globs {
		if matchGlob(g, path) {
			return true
		}
	}
	return false
}

// matchGlob implements the deliberately simple prefix semantics: strip "**/"
// markers and trailing wildcard segments from the glob, then prefix-compare
// against the normalized relative path.
func matchGlob(glob, path string) bool {
	g := normalize(glob)
	g = strings.ReplaceAll(g, "**/", "")
	g = strings.TrimSuffix(g, "/**")
	g = strings.TrimSuffix(g, "/*")
	g = strings.TrimSuffix(g, "*")
	if g == "" || g == "." {
		return true
	}
	if path == g {
		return true
	}
	if strings.HasSuffix(g, "/") {
		return strings.HasPrefix(path, g)
	}
	return strings.HasPrefix(path, g+"/") || strings.HasPrefix(path, g)
}

// normalize cleans a path to slash-separated relative form.
func normalize(path string) string {
	p := filepath.ToSlash(strings.TrimSpace(path))
	p = strings.TrimPrefix(p, "./")
	for strings.HasPrefix(p, "/") {
		p = strings.TrimPrefix(p, "/")
	}
	return p
}

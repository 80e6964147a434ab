// Package registry holds the static agent definitions loaded from config.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/copp1723/code-team-sub001/internal/config"
	"github.com/copp1723/code-team-sub001/pkg/models"
)

// ErrAgentNotFound is returned when a role has no definition.
var ErrAgentNotFound = errors.New("agent not found")

// Registry is a read-only lookup over agent definitions. Built once at
// startup; safe for concurrent use.
type Registry struct {
	byRole map[string]models.AgentDefinition
}

// New builds a Registry from validated configuration.
func New(cfg *config.Config) *Registry {
	byRole := make(map[string]models.AgentDefinition, len(cfg.Agents.Definitions))
	for role, def := range cfg.Agents.Definitions {
		byRole[role] = models.AgentDefinition{
			Role:         role,
			Model:        def.Model,
			WorkingPaths: append([]string(nil), def.WorkingPaths...),
			ExcludePaths: append([]string(nil), def.ExcludePaths...),
			BranchPrefix: def.BranchPrefix,
			Tags:         append([]string(nil), def.Tags...),
		}
	}
	return &Registry{byRole: byRole}
}

// Get returns the definition for role, or ErrAgentNotFound.
func (r *Registry) Get(role string) (models.AgentDefinition, error) {
	def, ok := r.byRole[role]
	if !ok {
		return models.AgentDefinition{}, fmt.Errorf("%w: %q", ErrAgentNotFound, role)
	}
	return def, nil
}

// All returns every definition, sorted by role for stable output.
func (r *Registry) All() []models.AgentDefinition {
	defs := make([]models.AgentDefinition, 0, len(r.byRole))
	for _, def := range r.byRole {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Role < defs[j].Role })
	return defs
}

// RoleForBranch derives the owning role from a branch name by matching the
// longest agent branch prefix. Returns ErrAgentNotFound when no prefix matches.
func (r *Registry) RoleForBranch(branch string) (string, error) {
	best := ""
	bestLen := -1
	for role, def := range r.byRole {
		p := def.BranchPrefix
		if p == "" {
			continue
		}
		if (branch == p || strings.HasPrefix(branch, p+"/")) && len(p) > bestLen {
			best = role
			bestLen = len(p)
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w: no branch prefix matches %q", ErrAgentNotFound, branch)
	}
	return best, nil
}

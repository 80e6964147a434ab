package registry

import (
	"errors"
	"testing"

	"github.com/copp1723/code-team-sub001/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		ProjectPath: "/srv/repo",
		Agents: config.AgentsConfig{
			Definitions: map[string]config.AgentConfig{
				"backend": {
					Model:        "claude-sonnet",
					WorkingPaths: []string{"src/api/"},
					BranchPrefix: "feature/backend",
				},
				"frontend": {
					Model:        "claude-sonnet",
					WorkingPaths: []string{"ui/"},
					BranchPrefix: "feature/frontend",
				},
			},
		},
	}
}

func TestGet(t *testing.T) {
	r := New(testConfig())
	def, err := r.Get("backend")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if def.Role != "backend" || def.BranchPrefix != "feature/backend" {
		t.Errorf("unexpected definition: %+v", def)
	}
	if _, err := r.Get("designer"); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("want ErrAgentNotFound, got %v", err)
	}
}

func TestAll_sortedByRole(t *testing.T) {
	r := New(testConfig())
	defs := r.All()
	if len(defs) != 2 {
		t.Fatalf("len = %d", len(defs))
	}
	if defs[0].Role != "backend" || defs[1].Role != "frontend" {
		t.Errorf("order = %s, %s", defs[0].Role, defs[1].Role)
	}
}

func TestRoleForBranch(t *testing.T) {
	r := New(testConfig())
	role, err := r.RoleForBranch("feature/backend/T42")
	if err != nil {
		t.Fatalf("RoleForBranch: %v", err)
	}
	if role != "backend" {
		t.Errorf("role = %q", role)
	}
	if _, err := r.RoleForBranch("hotfix/oops"); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("want ErrAgentNotFound, got %v", err)
	}
	// A prefix must match on a path segment, not mid-name.
	if _, err := r.RoleForBranch("feature/backendish/T1"); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("want ErrAgentNotFound for partial segment, got %v", err)
	}
}

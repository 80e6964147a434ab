package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
project_path: /srv/repo
project_master_branch: main
agents:
  definitions:
    backend:
      model: claude-sonnet
      working_paths: ["src/api/", "src/services/"]
      exclude_paths: ["src/api/legacy/"]
      branch_prefix: feature/backend
    frontend:
      model: claude-sonnet
      working_paths: ["ui/"]
      branch_prefix: feature/frontend
conflict_resolution:
  priority_order: [database, backend, frontend]
master_agent:
  branch: integration/master
  responsibilities:
    integration:
      rollback_on_failure: true
`

func TestParse_valid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.ProjectMasterBranch != "main" {
		t.Errorf("master branch = %q", cfg.ProjectMasterBranch)
	}
	if got := cfg.Agents.Definitions["backend"].BranchPrefix; got != "feature/backend" {
		t.Errorf("backend prefix = %q", got)
	}
	if !cfg.MasterAgent.Responsibilities.Integration.RollbackOnFailure {
		t.Error("rollback_on_failure should be true")
	}
	if cfg.StateDir != filepath.Join("/srv/repo", ".crew") {
		t.Errorf("state dir default = %q", cfg.StateDir)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("store driver default = %q", cfg.Store.Driver)
	}
}

func TestParse_missingModelIsFatal(t *testing.T) {
	doc := `
project_path: /srv/repo
agents:
  definitions:
    backend:
      working_paths: ["src/"]
      branch_prefix: feature/backend
`
	_, err := Parse([]byte(doc))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}

func TestParse_missingWorkingPathsIsFatal(t *testing.T) {
	doc := `
project_path: /srv/repo
agents:
  definitions:
    backend:
      model: claude-sonnet
      branch_prefix: feature/backend
`
	_, err := Parse([]byte(doc))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}

func TestParse_rejectsUnknownKeys(t *testing.T) {
	doc := validYAML + "\nnot_a_real_key: true\n"
	if _, err := Parse([]byte(doc)); err == nil {
		t.Fatal("unknown key should fail to parse")
	}
}

func TestParse_postgresRequiresDSN(t *testing.T) {
	doc := validYAML + "\nstore:\n  driver: postgres\n"
	_, err := Parse([]byte(doc))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}

func TestLoad_readsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crew.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Agents.Definitions) != 2 {
		t.Errorf("agent count = %d", len(cfg.Agents.Definitions))
	}
}

func TestResolvePath(t *testing.T) {
	if got := ResolvePath("override.yaml"); got != "override.yaml" {
		t.Errorf("override = %q", got)
	}
	t.Setenv("CREW_CONFIG", "/etc/crew.yaml")
	if got := ResolvePath(""); got != "/etc/crew.yaml" {
		t.Errorf("env = %q", got)
	}
	t.Setenv("CREW_CONFIG", "")
	if got := ResolvePath(""); got != "crew.yaml" {
		t.Errorf("default = %q", got)
	}
}

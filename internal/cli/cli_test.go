package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/copp1723/code-team-sub001/internal/tracker"
)

// writeTestConfig writes a minimal valid config rooted in a temp dir.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "crew.yaml")
	doc := fmt.Sprintf(`project_path: %q
agents:
  definitions:
    backend:
      model: m
      working_paths: ["src/"]
      branch_prefix: feature/backend
`, dir)
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewRootCmd_hasSubcommands(t *testing.T) {
	root := NewRootCmd("test")
	if root == nil {
		t.Fatal("NewRootCmd returned nil")
	}
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"init", "create", "check", "sync", "merge", "status", "runs", "integrate", "watch"} {
		if !names[want] {
			t.Errorf("expected subcommand %q", want)
		}
	}
}

func TestNewRootCmd_versionFlag(t *testing.T) {
	root := NewRootCmd("1.2.3")
	if root.Version != "1.2.3" {
		t.Errorf("Version: got %q", root.Version)
	}
}

func TestNewRootCmd_hasConfigFlag(t *testing.T) {
	root := NewRootCmd("")
	if root.PersistentFlags().Lookup("config") == nil {
		t.Fatal("expected --config persistent flag")
	}
}

func TestInit_writesStarterConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crew.yaml")
	root := NewRootCmd("")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"--config", path, "init"})
	if err := root.Execute(); err != nil {
		t.Fatalf("init: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(data), "agents:") {
		t.Errorf("starter config missing agents section:\n%s", data)
	}
}

func TestInit_refusesToOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crew.yaml")
	if err := os.WriteFile(path, []byte("project_path: ."), 0o644); err != nil {
		t.Fatal(err)
	}
	root := NewRootCmd("")
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"--config", path, "init"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error overwriting existing config")
	}
}

func TestCreate_rejectsMissingArgs(t *testing.T) {
	root := NewRootCmd("")
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"create", "backend"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected arg error")
	}
}

func TestMerge_acceptsPositionalMessage(t *testing.T) {
	path := writeTestConfig(t)
	root := NewRootCmd("")
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"--config", path, "merge", "backend", "finish task"})
	// The positional message must clear arg validation; with no active task
	// the command then fails inside the tracker, not in cobra.
	err := root.Execute()
	if err == nil {
		t.Fatal("expected no-active-task error")
	}
	if !errors.Is(err, tracker.ErrNoActiveTask) {
		t.Fatalf("want ErrNoActiveTask, got %v", err)
	}
}

func TestMerge_rejectsExtraArgs(t *testing.T) {
	root := NewRootCmd("")
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"merge", "backend", "msg", "extra"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected arg error")
	}
}

func TestSync_bareSyncsAllActive(t *testing.T) {
	path := writeTestConfig(t)
	root := NewRootCmd("")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"--config", path, "sync"})
	if err := root.Execute(); err != nil {
		t.Fatalf("bare sync: %v", err)
	}
	if !strings.Contains(buf.String(), "Sync round finished") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestStatus_failsWithoutConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	root := NewRootCmd("")
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"--config", path, "status"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error for missing config")
	}
}

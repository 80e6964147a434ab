// Package config loads and validates the coordinator configuration document.
// The config is read once at startup into a typed Config value and passed
// into every component's constructor; there is no ambient global state.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps all fatal configuration errors detected at load time.
var ErrInvalid = errors.New("invalid configuration")

// AgentConfig defines one agent role: model, path boundaries, branch prefix.
type AgentConfig struct {
	Model        string   `yaml:"model"`
	WorkingPaths []string `yaml:"working_paths"`
	ExcludePaths []string `yaml:"exclude_paths"`
	BranchPrefix string   `yaml:"branch_prefix"`
	Tags         []string `yaml:"tags"`
}

// AgentsConfig holds the role -> definition table.
type AgentsConfig struct {
	Definitions map[string]AgentConfig `yaml:"definitions"`
}

// ConflictResolutionConfig configures merge ordering and lockfile handling.
type ConflictResolutionConfig struct {
	// PriorityOrder lists role name substrings from highest to lowest merge
	// priority. Branches whose role cannot be determined sort last.
	PriorityOrder []string `yaml:"priority_order"`
	// LockfileCommands maps a lockfile basename to the command that
	// regenerates it from the local manifest (run via sh -c in the repo).
	LockfileCommands map[string]string `yaml:"lockfile_commands"`
}

// IntegrationConfig configures the master agent's integration pipeline.
type IntegrationConfig struct {
	RollbackOnFailure       bool `yaml:"rollback_on_failure"`
	FatalBoundaryViolations bool `yaml:"fatal_boundary_violations"`
	AllowValidationOverride bool `yaml:"allow_validation_override"`
}

// MasterAgentConfig names the integration branch and its responsibilities.
type MasterAgentConfig struct {
	Branch           string `yaml:"branch"`
	Responsibilities struct {
		Integration IntegrationConfig `yaml:"integration"`
	} `yaml:"responsibilities"`
}

// ReviewConfig is the branch review policy.
type ReviewConfig struct {
	RequireTests bool `yaml:"require_tests"`
	// DocsFileThreshold is the changed-file count above which a changeset
	// must include a documentation change. 0 uses the default.
	DocsFileThreshold int `yaml:"docs_file_threshold"`
}

// ValidationConfig holds the build/test/lint command lines run during
// validate-integration. Empty commands skip the corresponding check.
type ValidationConfig struct {
	BuildCmd string `yaml:"build_cmd"`
	TestCmd  string `yaml:"test_cmd"`
	LintCmd  string `yaml:"lint_cmd"`
}

// StoreConfig selects the workflow-run audit store backend.
type StoreConfig struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string `yaml:"driver"`
	// DSN is the postgres connection string; unused for sqlite.
	DSN string `yaml:"dsn"`
}

// WatchConfig configures the background sync loop.
type WatchConfig struct {
	SyncInterval time.Duration `yaml:"sync_interval"`
	MetricsAddr  string        `yaml:"metrics_addr"`
}

// Config is the full coordinator configuration.
type Config struct {
	ProjectPath         string                   `yaml:"project_path"`
	ProjectMasterBranch string                   `yaml:"project_master_branch"`
	// StateDir holds the lock table, status map, and sqlite audit store.
	// Defaults to <project_path>/.crew.
	StateDir           string                   `yaml:"state_dir"`
	Agents             AgentsConfig             `yaml:"agents"`
	ConflictResolution ConflictResolutionConfig `yaml:"conflict_resolution"`
	MasterAgent        MasterAgentConfig        `yaml:"master_agent"`
	Review             ReviewConfig             `yaml:"review"`
	Validation         ValidationConfig         `yaml:"validation"`
	Store              StoreConfig              `yaml:"store"`
	Watch              WatchConfig              `yaml:"watch"`
}

// DefaultPriorityOrder is the fixed merge precedence when the config does not
// set one: database first, testing last.
var DefaultPriorityOrder = []string{"database", "backend", "integration", "frontend", "testing"}

// DefaultLockfileCommands regenerate well-known dependency lockfiles from the
// local manifest after a conflict keeps the local side.
var DefaultLockfileCommands = map[string]string{
	"package-lock.json": "npm install --package-lock-only",
	"yarn.lock":         "yarn install --mode update-lockfile",
	"pnpm-lock.yaml":    "pnpm install --lockfile-only",
	"go.sum":            "go mod tidy",
	"Cargo.lock":        "cargo generate-lockfile",
}

// Load reads, defaults, and validates the config document at path.
// Unknown keys are rejected. Any validation failure is fatal (wrapped in ErrInvalid).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a config document.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ProjectMasterBranch == "" {
		c.ProjectMasterBranch = "main"
	}
	if c.StateDir == "" && c.ProjectPath != "" {
		c.StateDir = filepath.Join(c.ProjectPath, ".crew")
	}
	if len(c.ConflictResolution.PriorityOrder) == 0 {
		c.ConflictResolution.PriorityOrder = append([]string(nil), DefaultPriorityOrder...)
	}
	if c.ConflictResolution.LockfileCommands == nil {
		c.ConflictResolution.LockfileCommands = DefaultLockfileCommands
	}
	if c.MasterAgent.Branch == "" {
		c.MasterAgent.Branch = "integration/master"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Watch.SyncInterval <= 0 {
		c.Watch.SyncInterval = 5 * time.Minute
	}
}

// Validate checks the invariants that must hold before any coordination work
// starts. A failing config halts the process.
func (c *Config) Validate() error {
	if c.ProjectPath == "" {
		return fmt.Errorf("%w: project_path is required", ErrInvalid)
	}
	if len(c.Agents.Definitions) == 0 {
		return fmt.Errorf("%w: agents.definitions must not be empty", ErrInvalid)
	}
	for role, def := range c.Agents.Definitions {
		if def.Model == "" {
			return fmt.Errorf("%w: agent %q has no model", ErrInvalid, role)
		}
		if len(def.WorkingPaths) == 0 {
			return fmt.Errorf("%w: agent %q has no working_paths", ErrInvalid, role)
		}
		if def.BranchPrefix == "" {
			return fmt.Errorf("%w: agent %q has no branch_prefix", ErrInvalid, role)
		}
	}
	switch c.Store.Driver {
	case "sqlite":
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("%w: store.dsn is required for the postgres driver", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown store.driver %q", ErrInvalid, c.Store.Driver)
	}
	return nil
}

// ResolvePath returns the config file path: override, CREW_CONFIG, or ./crew.yaml.
func ResolvePath(override string) string {
	if override != "" {
		return filepath.Clean(override)
	}
	if env := os.Getenv("CREW_CONFIG"); env != "" {
		return filepath.Clean(env)
	}
	return "crew.yaml"
}

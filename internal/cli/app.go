package cli

import (
	"context"

	"github.com/copp1723/code-team-sub001/internal/boundary"
	"github.com/copp1723/code-team-sub001/internal/config"
	"github.com/copp1723/code-team-sub001/internal/git"
	"github.com/copp1723/code-team-sub001/internal/registry"
	"github.com/copp1723/code-team-sub001/internal/state"
	"github.com/copp1723/code-team-sub001/internal/store"
	"github.com/copp1723/code-team-sub001/internal/store/postgres"
	"github.com/copp1723/code-team-sub001/internal/tracker"
)

// app bundles the components every command wires from configuration.
type app struct {
	Cfg      *config.Config
	State    *state.Store
	Registry *registry.Registry
	Boundary *boundary.Enforcer
	Git      *git.Repo
	Tracker  *tracker.Tracker
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(config.MustPathFrom(ctx))
	if err != nil {
		return nil, err
	}
	st, err := state.Open(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	reg := registry.New(cfg)
	enf := boundary.New(reg, st)
	repo := &git.Repo{Dir: cfg.ProjectPath}
	return &app{
		Cfg:      cfg,
		State:    st,
		Registry: reg,
		Boundary: enf,
		Git:      repo,
		Tracker:  tracker.New(reg, enf, repo, st, cfg.ProjectMasterBranch),
	}, nil
}

// openAudit opens the workflow-run audit store named by the config.
func openAudit(cfg *config.Config) (store.Store, error) {
	if cfg.Store.Driver == "postgres" {
		return postgres.Open(cfg.Store.DSN)
	}
	return store.Open(cfg.StateDir)
}

// Package conflict resolves merge conflicts file-by-file with per-file-type
// strategies. The strategies are a best-effort heuristic over file shape, not
// code meaning; the fallback is deterministic "incoming wins".
package conflict

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/copp1723/code-team-sub001/internal/git"
	"github.com/copp1723/code-team-sub001/pkg/models"
)

// ResolvedFile records which strategy resolved one conflicted path.
type ResolvedFile struct {
	Path     string
	Strategy string
}

// Resolution is the outcome of resolving a failed merge.
type Resolution struct {
	Incoming string
	Files    []ResolvedFile
}

// CommitMessage renders the resolution commit message, one line per file
// naming the strategy that applied.
func (r Resolution) CommitMessage() string {
	var b strings.Builder
	fmt.Fprintf(&b, "resolve merge conflicts from %s\n", r.Incoming)
	for _, f := range r.Files {
		fmt.Fprintf(&b, "\n%s: %s", f.Path, f.Strategy)
	}
	return b.String()
}

// CommandRunner executes a shell command line in dir.
type CommandRunner func(ctx context.Context, dir, cmdLine string) error

// Resolver applies conflict strategies inside a working tree that has a
// failed merge in progress.
type Resolver struct {
	Git git.Runner
	// Dir is the working tree root, used when writing merged structured files.
	Dir string
	// LockfileCommands maps lockfile basenames to regeneration commands.
	LockfileCommands map[string]string
	// RunCmd runs a regeneration command; defaults to sh -c.
	RunCmd CommandRunner
}

// New returns a Resolver over the given working tree.
func New(g git.Runner, dir string, lockfileCommands map[string]string) *Resolver {
	return &Resolver{Git: g, Dir: dir, LockfileCommands: lockfileCommands}
}

// Resolve handles each conflicted file and stages the result:
//   - known lockfiles keep the local side and are regenerated by the package manager
//   - structured key-value files get a shallow merge, incoming keys winning
//   - everything else takes the incoming side
//
// No file is ever silently dropped: every input path ends up staged with a
// recorded strategy.
func (r *Resolver) Resolve(ctx context.Context, incoming string, files []string) (Resolution, error) {
	res := Resolution{Incoming: incoming}
	for _, file := range files {
		strategy, err := r.resolveFile(ctx, incoming, file)
		if err != nil {
			return res, fmt.Errorf("resolve %s: %w", file, err)
		}
		if err := r.Git.Add(ctx, file); err != nil {
			return res, fmt.Errorf("stage %s: %w", file, err)
		}
		res.Files = append(res.Files, ResolvedFile{Path: file, Strategy: strategy})
		slog.Info("resolved conflict", "file", file, "strategy", strategy, "incoming", incoming)
	}
	return res, nil
}

func (r *Resolver) resolveFile(ctx context.Context, incoming, file string) (string, error) {
	if cmdLine, ok := r.LockfileCommands[path.Base(file)]; ok {
		if err := r.Git.CheckoutSide(ctx, git.SideOurs, file); err != nil {
			return "", err
		}
		if err := r.runCmd(ctx, cmdLine); err != nil {
			return "", fmt.Errorf("regenerate lockfile: %w", err)
		}
		return models.StrategyRegenerateLockfile, nil
	}

	if isStructured(file) {
		if ok, err := r.shallowMerge(ctx, incoming, file); err != nil {
			return "", err
		} else if ok {
			return models.StrategyShallowMerge, nil
		}
		// Parse failure falls back to incoming wins.
	}

	if err := r.Git.CheckoutSide(ctx, git.SideTheirs, file); err != nil {
		return "", err
	}
	return models.StrategyIncomingWins, nil
}

// shallowMerge merges both sides of a structured file one level deep, with
// incoming keys overwriting local on collision. Returns false when either
// side does not parse as a key-value map.
func (r *Resolver) shallowMerge(ctx context.Context, incoming, file string) (bool, error) {
	localRaw, err := r.Git.Show(ctx, "HEAD", file)
	if err != nil {
		return false, nil
	}
	incomingRaw, err := r.Git.Show(ctx, incoming, file)
	if err != nil {
		return false, nil
	}
	local, ok := parseMap(file, localRaw)
	if !ok {
		return false, nil
	}
	theirs, ok := parseMap(file, incomingRaw)
	if !ok {
		return false, nil
	}
	for k, v := range theirs {
		local[k] = v
	}
	merged, err := renderMap(file, local)
	if err != nil {
		return false, nil
	}
	if err := os.WriteFile(filepath.Join(r.Dir, filepath.FromSlash(file)), merged, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Resolver) runCmd(ctx context.Context, cmdLine string) error {
	if r.RunCmd != nil {
		return r.RunCmd(ctx, r.Dir, cmdLine)
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", cmdLine)
	cmd.Dir = r.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", cmdLine, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func isStructured(file string) bool {
	switch strings.ToLower(path.Ext(file)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func parseMap(file string, data []byte) (map[string]any, bool) {
	var m map[string]any
	if strings.ToLower(path.Ext(file)) == ".json" {
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, false
		}
	} else {
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, false
		}
	}
	return m, m != nil
}

func renderMap(file string, m map[string]any) ([]byte, error) {
	if strings.ToLower(path.Ext(file)) == ".json" {
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return yaml.Marshal(m)
}

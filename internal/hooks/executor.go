// Package hooks implements the Hook Executor (spec §4.8): on a
// confirmed state transition it looks up configured hook commands for
// (old_state, new_state) or a wildcard "any transition" hook, and runs
// each fire-and-forget via the operator shell with the worktree's Git
// facts injected as environment variables.
package hooks

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/ccsup/ccsup/internal/activitylog"
	"github.com/ccsup/ccsup/internal/config"
	"github.com/ccsup/ccsup/internal/detector"
	"github.com/ccsup/ccsup/internal/gitinfo"
)

// wildcard matches "any transition" when a hook's To is unset or "*".
const wildcard = "*"

// Executor fires configured hooks on confirmed state transitions and
// on worktree creation. Hook processes are fire-and-forget: their
// exit status and combined output are logged but never fed back into
// session state (spec §4.8).
type Executor struct {
	Hooks []config.HookConfig
	Log   *activitylog.Logger

	// ExtraEnv holds operator-provided extras merged into every hook's
	// environment (spec §4.8: "plus user-provided extras").
	ExtraEnv map[string]string
}

// New creates an Executor from the configured hook table. A nil
// logger is replaced with a no-op one.
func New(cfg *config.Config, log *activitylog.Logger) *Executor {
	if log == nil {
		log = activitylog.Nop()
	}
	var hooks []config.HookConfig
	if cfg != nil {
		hooks = cfg.Hooks
	}
	return &Executor{Hooks: hooks, Log: log}
}

// Fire looks up every hook matching the (from, to) transition —
// exact matches and the wildcard — and runs them fire-and-forget.
// worktreePath is used both to resolve Git facts for the hook's
// environment and as the hook's working directory.
func (e *Executor) Fire(from, to detector.State, worktreePath string) {
	for _, h := range e.matching(from, to) {
		go e.run(h, from.String(), to.String(), worktreePath)
	}
}

// FireWorktreeCreated runs every hook configured for the worktree
// post-creation scope, with the same fire-and-forget, env-injected
// execution as state-transition hooks.
func (e *Executor) FireWorktreeCreated(worktreePath string) {
	for _, h := range e.Hooks {
		if !h.Enabled || !h.WorktreeCreated {
			continue
		}
		go e.run(h, "", "worktree_created", worktreePath)
	}
}

func (e *Executor) matching(from, to detector.State) []config.HookConfig {
	var out []config.HookConfig
	for _, h := range e.Hooks {
		if !h.Enabled || h.Schedule != "" || h.WorktreeCreated {
			continue
		}
		toMatches := h.To == "" || h.To == wildcard || h.To == to.String()
		fromMatches := h.From == "" || h.From == from.String()
		if toMatches && fromMatches {
			out = append(out, h)
		}
	}
	return out
}

// run executes one hook command to completion. No timeout is applied
// (spec §5: "Hook execution: none (fire-and-forget)"); the caller runs
// this in its own goroutine so a hanging hook never blocks the
// session's state machine.
func (e *Executor) run(h config.HookConfig, from, to, worktreePath string) {
	argv, err := shlex.Split(h.Command)
	if err != nil || len(argv) == 0 {
		e.Log.HookCommand(from, to, h.Command, -1, fmt.Sprintf("invalid command: %v", err))
		return
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = worktreePath
	cmd.Env = append(os.Environ(), envForHook(worktreePath, e.ExtraEnv)...)

	output, err := cmd.CombinedOutput()
	exitCode := 0
	if err != nil {
		exitCode = 1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
	}
	e.Log.HookCommand(from, to, h.Command, exitCode, strings.TrimRight(string(output), "\n"))
}

// envForHook builds the environment variables injected into every
// hook process: the worktree path, branch, Git root, base branch
// (when known), and any operator-provided extras. Names follow
// spec.md §6 verbatim.
func envForHook(worktreePath string, extra map[string]string) []string {
	env := []string{"CCMANAGER_WORKTREE_PATH=" + worktreePath}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if info, err := gitinfo.Resolve(ctx, worktreePath); err == nil {
		env = append(env, "CCMANAGER_WORKTREE_BRANCH="+info.Branch)
		env = append(env, "CCMANAGER_GIT_ROOT="+info.Root)
		if info.BaseBranch != "" {
			env = append(env, "CCMANAGER_BASE_BRANCH="+info.BaseBranch)
		}
	}
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

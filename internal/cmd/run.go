package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/shlex"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ccsup/ccsup/internal/activitylog"
	"github.com/ccsup/ccsup/internal/autoapprove"
	"github.com/ccsup/ccsup/internal/config"
	"github.com/ccsup/ccsup/internal/detector"
	"github.com/ccsup/ccsup/internal/eventbus"
	"github.com/ccsup/ccsup/internal/gitinfo"
	"github.com/ccsup/ccsup/internal/hooks"
	"github.com/ccsup/ccsup/internal/orchestrator"
	"github.com/ccsup/ccsup/internal/session"
)

const (
	ptyDefaultCols = 80
	ptyDefaultRows = 24
)

func newRunCmd() *cobra.Command {
	var presetID string
	var projectPath string

	cmd := &cobra.Command{
		Use:   "run [worktree-path]",
		Short: "Start or attach to a session for a worktree",
		Long: `Spawns the preset's agent command in a pseudo-terminal bound to the
given worktree (defaults to the current directory), attaches the
current terminal to it, and blocks until the session exits or the
operator detaches with the reserved shortcut (Ctrl+\).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			worktree, err := resolveWorktree(args)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			preset, ok := config.Find(cfg, presetID)
			if !ok {
				return fmt.Errorf("unknown preset %q", presetID)
			}

			if projectPath == "" {
				if info, err := gitinfo.Resolve(cmd.Context(), worktree); err == nil && info.Root != "" {
					projectPath = info.Root
				} else {
					projectPath = worktree
				}
			}

			return runSession(cmd, cfg, preset, projectPath, worktree)
		},
	}

	cmd.Flags().StringVar(&presetID, "preset", "claude", "Command preset to run (claude, gemini, codex, cursor, copilot, cline)")
	cmd.Flags().StringVar(&projectPath, "project", "", "Owning project path (defaults to the worktree's Git root)")

	return cmd
}

func resolveWorktree(args []string) (string, error) {
	if len(args) == 1 {
		return filepath.Abs(args[0])
	}
	return os.Getwd()
}

// runSession wires one orchestrator for the lifetime of this process,
// attaches the operator's terminal to a single session, and blocks
// until the session exits or the operator detaches.
func runSession(cmd *cobra.Command, cfg *config.Config, preset config.Preset, projectPath, worktree string) error {
	bus := eventbus.New()
	orch := orchestrator.New(bus)

	oracleCmd, err := parseOracleCommand(cfg.AutoApproval.OracleCommand)
	if err != nil {
		return fmt.Errorf("parse oracle_command: %w", err)
	}
	pipeline := autoapprove.New(oracleCmd, cfg.AutoApproval.Timeout)
	enabled := func() bool { return cfg.AutoApproval.Enabled }

	exec := hooks.New(cfg, nil)
	var sessLog *activitylog.Logger
	orch.NewSession = func(project, worktreePath string, preset config.Preset, extraEnv map[string]string) *session.Session {
		id := uuid.New().String()
		opts := []session.Option{session.WithID(id), session.WithAutoApproval(pipeline, enabled)}

		if dir, err := config.SetupSessionDir(id); err == nil {
			if store, err := eventbus.OpenStore(dir); err == nil {
				opts = append(opts, session.WithEventStore(store))
			}
			sessLog = activitylog.New(true, filepath.Join(dir, "activity.log"), preset.ID, id)
			exec.Log = sessLog
		}
		return session.New(project, worktreePath, preset, bus, extraEnv, opts...)
	}

	orch.OnStateChange = func(sess *session.Session, old, next detector.State) {
		if sessLog != nil {
			sessLog.StateChange(old.String(), next.String())
		}
		exec.Fire(old, next, sess.WorktreePath)
	}

	cols, rows := ptyDefaultCols, ptyDefaultRows
	if isatty.IsTerminal(os.Stdout.Fd()) {
		if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			cols, rows = w, h
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sess, err := orch.Attach(ctx, projectPath, worktree, preset, nil, os.Stdout, cols, rows)
	if err != nil {
		return fmt.Errorf("attach session: %w", err)
	}

	if dir := config.SessionDir(sess.ID); dir != "" {
		info, _ := gitinfo.Resolve(ctx, worktree)
		_ = config.WriteSessionMetadata(dir, config.SessionMetadata{
			SessionID:    sess.ID,
			ProjectPath:  projectPath,
			WorktreePath: worktree,
			PresetID:     preset.ID,
			Branch:       info.Branch,
			BaseBranch:   info.BaseBranch,
		})
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Session %s started for %s. Ctrl+\\ detaches.\n", sess.ID, worktree)

	exitCh := make(chan struct{}, 1)
	sub := bus.Subscribe()
	go func() {
		for ev := range sub.Events() {
			if ev.SessionID == sess.ID && (ev.Kind == eventbus.KindSessionExit || ev.Kind == eventbus.KindSessionDestroyed) {
				select {
				case exitCh <- struct{}{}:
				default:
				}
			}
		}
	}()
	defer bus.Unsubscribe(sub)

	return attachTerminal(cmd, sess, exitCh)
}

// attachTerminal puts the operator's stdin in raw mode, forwards
// keystrokes to the session, forwards SIGWINCH to a resize, and
// blocks until the session exits or the reserved shortcut detaches.
func attachTerminal(cmd *cobra.Command, sess *session.Session, exitCh <-chan struct{}) error {
	fd := int(os.Stdin.Fd())
	if isatty.IsTerminal(uintptr(fd)) {
		state, err := term.MakeRaw(fd)
		if err == nil {
			defer term.Restore(fd, state)
		}
	}

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)
	go func() {
		for range winch {
			if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				sess.Resize(w, h)
			}
		}
	}()

	detached := make(chan struct{})
	go func() {
		defer close(detached)
		buf := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				gone, werr := sess.SendInput(buf[:n])
				if gone || werr != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	select {
	case <-exitCh:
		fmt.Fprintln(cmd.ErrOrStderr(), "\nsession exited")
	case <-detached:
		fmt.Fprintln(cmd.ErrOrStderr(), "\ndetached")
		sess.Detach()
	}
	return nil
}

func parseOracleCommand(custom string) (autoapprove.Command, error) {
	if custom == "" {
		return autoapprove.Command{}, nil
	}
	parts, err := shlex.Split(custom)
	if err != nil {
		return autoapprove.Command{}, err
	}
	if len(parts) == 0 {
		return autoapprove.Command{}, fmt.Errorf("empty oracle_command")
	}
	return autoapprove.Command{Path: parts[0], Args: parts[1:]}, nil
}

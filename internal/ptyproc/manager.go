// Package ptyproc implements the PTY Process Manager: it spawns a
// Command Preset's child in a pseudo-terminal and applies the
// primary→fallback respawn protocol on early exit.
package ptyproc

import (
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/ccsup/ccsup/internal/config"
	"github.com/ccsup/ccsup/internal/vt"
	"github.com/vito/midterm"
)

// DefaultCols and DefaultRows are used when the operator terminal's
// dimensions are not yet known (spec §4.5: "defaults 80x24").
const (
	DefaultCols = 80
	DefaultRows = 24
)

// writeTimeout bounds how long a PTY write can block before the child
// is considered hung (see vt.VT.WritePTY).
const writeTimeout = 5 * time.Second

// ExitInfo describes how a child process exited.
type ExitInfo struct {
	Code     int
	Signaled bool
}

// isEarlyFailure reports the condition spec §4.5 triggers fallback on:
// exit code 1, no signal.
func (e ExitInfo) isEarlyFailure() bool {
	return e.Code == 1 && !e.Signaled
}

// Manager owns a VT and the Command Preset used to spawn it,
// implementing the respawn protocol across the child process's
// lifetime. One Manager exists per Session.
type Manager struct {
	VT     *vt.VT
	preset config.Preset

	worktreePath string
	extraEnv     map[string]string

	// IsPrimaryCommand mirrors the spec's session flag: true until a
	// fallback respawn occurs, after which it is permanently false.
	IsPrimaryCommand bool

	cols, rows, childRows int
}

// New creates a Manager for preset, to be spawned in worktreePath.
// extraEnv is merged into the child's environment, overriding
// inherited values with matching keys (used for the hook-style
// CCMANAGER_* variables and any operator-provided extras).
func New(preset config.Preset, worktreePath string, extraEnv map[string]string) *Manager {
	return &Manager{
		VT:               &vt.VT{},
		preset:           preset,
		worktreePath:     worktreePath,
		extraEnv:         extraEnv,
		IsPrimaryCommand: true,
		cols:             DefaultCols,
		rows:             DefaultRows,
		childRows:        DefaultRows,
	}
}

// Spawn starts the preset's primary command in a PTY sized cols x rows,
// with the working directory set to worktreePath. It must be called
// before PipeOutput/Resize/Write.
func (m *Manager) Spawn(cols, rows int) error {
	if cols <= 0 {
		cols = DefaultCols
	}
	if rows <= 0 {
		rows = DefaultRows
	}
	m.cols, m.rows, m.childRows = cols, rows, rows

	if err := m.startIn(m.preset.Command, m.preset.PrimaryArgs); err != nil {
		return fmt.Errorf("spawn %s: %w", m.preset.Command, err)
	}
	m.newScreen(rows, cols)
	return nil
}

// startIn resolves the executable and argv for one spawn attempt
// (primary or fallback) and starts the PTY, applying the devcontainer
// exec-command prefix when the preset calls for it.
func (m *Manager) startIn(command string, args []string) error {
	fullCommand, fullArgs := command, args
	if m.preset.Devcontainer && len(m.preset.ExecPrefix) > 0 {
		prefix := m.preset.ExecPrefix
		fullCommand = prefix[0]
		fullArgs = append(append([]string{}, prefix[1:]...), append([]string{command}, args...)...)
	}
	m.VT.Cmd = nil // previous child, if any, has already exited
	return m.VT.StartPTY(fullCommand, fullArgs, m.childRows, m.cols, withCWD(m.extraEnv, m.worktreePath))
}

// withCWD sets PWD to the worktree path; vt.StartPTY starts the child
// in the directory PWD names, so this also sets the child's working
// directory. extraEnv always wins on key collision.
func withCWD(extraEnv map[string]string, worktreePath string) map[string]string {
	env := make(map[string]string, len(extraEnv)+1)
	env["PWD"] = worktreePath
	for k, v := range extraEnv {
		env[k] = v
	}
	return env
}

// Respawn implements spec §4.5 step 1-2: on an early failure of the
// primary command, swap in the fallback argument vector (or an empty
// vector if none was configured), marking IsPrimaryCommand false.
// If that respawn also fails to start, it tries the ultimate fallback
// executable, "claude", with no arguments. Callers are responsible for
// publishing session_process_replaced and re-installing data/exit
// handlers around the new child.
func (m *Manager) Respawn(cols, rows int) error {
	m.IsPrimaryCommand = false
	m.cols, m.rows, m.childRows = cols, rows, rows

	err := m.startIn(m.preset.Command, m.preset.FallbackArgs)
	if err != nil {
		if err2 := m.startIn("claude", nil); err2 != nil {
			return fmt.Errorf("respawn %s (and ultimate fallback claude): %w", m.preset.Command, err2)
		}
	}
	m.newScreen(rows, cols)
	return nil
}

// newScreen (re)creates the virtual terminal after a fresh PTY spawn,
// matching the teacher's initVT sizing (child rows equal to the full
// terminal rows; the supervisor reserves no chrome rows of its own).
func (m *Manager) newScreen(rows, cols int) {
	m.VT.Vt = midterm.NewTerminal(rows, cols)
}

// ShouldRespawn applies spec §4.5's trigger condition.
func ShouldRespawn(info ExitInfo, isPrimary bool) bool {
	return isPrimary && info.isEarlyFailure()
}

// PipeOutput forwards child output into the virtual terminal, invoking
// onData with each chunk as it is processed. It returns once the
// child's PTY master is closed (the child exited).
func (m *Manager) PipeOutput(onData func(chunk []byte)) {
	m.VT.PipeOutput(onData)
}

// Wait blocks until the child process exits and returns how it exited.
func (m *Manager) Wait() ExitInfo {
	err := m.VT.Cmd.Wait()
	return exitInfoFromError(err)
}

// exitInfoFromError interprets the error returned by exec.Cmd.Wait.
func exitInfoFromError(err error) ExitInfo {
	if err == nil {
		return ExitInfo{Code: 0}
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return ExitInfo{Code: -1}
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		if ws.Signaled() {
			return ExitInfo{Code: -1, Signaled: true}
		}
		return ExitInfo{Code: ws.ExitStatus()}
	}
	return ExitInfo{Code: exitErr.ExitCode()}
}

// Resize forwards a resize to both the PTY and the virtual terminal.
func (m *Manager) Resize(cols, rows int) {
	m.cols, m.rows, m.childRows = cols, rows, rows
	m.VT.Resize(rows, cols, rows)
}

// Kill sends SIGKILL to the child process.
func (m *Manager) Kill() {
	m.VT.KillChild()
}

// Write writes bytes to the child's PTY, per VT.WritePTY's hang-detection contract.
func (m *Manager) Write(p []byte) (int, error) {
	return m.VT.WritePTY(p, writeTimeout)
}

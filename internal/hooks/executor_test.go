package hooks

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ccsup/ccsup/internal/activitylog"
	"github.com/ccsup/ccsup/internal/config"
	"github.com/ccsup/ccsup/internal/detector"
)

func waitForLine(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			return string(data)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for hook log entry")
	return ""
}

func TestFire_RunsMatchingTransitionHook(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "activity.log")
	log := activitylog.New(true, logPath, "agent", "sess")
	defer log.Close()

	cfg := &config.Config{Hooks: []config.HookConfig{
		{From: "waiting_input", To: "busy", Command: "echo fired", Enabled: true},
	}}
	e := New(cfg, log)
	e.Fire(detector.StateWaitingInput, detector.StateBusy, t.TempDir())

	out := waitForLine(t, logPath)
	if !strings.Contains(out, "hook_command") || !strings.Contains(out, "fired") {
		t.Fatalf("expected hook_command log entry mentioning output, got %q", out)
	}
}

func TestFire_WildcardMatchesAnyTransition(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "activity.log")
	log := activitylog.New(true, logPath, "agent", "sess")
	defer log.Close()

	cfg := &config.Config{Hooks: []config.HookConfig{
		{To: "*", Command: "echo any", Enabled: true},
	}}
	e := New(cfg, log)
	e.Fire(detector.StateIdle, detector.StatePendingAutoApproval, t.TempDir())

	out := waitForLine(t, logPath)
	if !strings.Contains(out, "hook_command") {
		t.Fatalf("expected wildcard hook to fire, got %q", out)
	}
}

func TestFire_SkipsDisabledHooks(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "activity.log")
	log := activitylog.New(true, logPath, "agent", "sess")
	defer log.Close()

	cfg := &config.Config{Hooks: []config.HookConfig{
		{To: "busy", Command: "echo nope", Enabled: false},
	}}
	e := New(cfg, log)
	e.Fire(detector.StateIdle, detector.StateBusy, t.TempDir())

	time.Sleep(50 * time.Millisecond)
	// An enabled logger creates its file up front, so check it is empty.
	if data, err := os.ReadFile(logPath); err != nil || len(data) != 0 {
		t.Fatalf("expected no log entry for a disabled hook, got %q (err %v)", data, err)
	}
}

func TestFireWorktreeCreated_RunsOnlyWorktreeHooks(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "activity.log")
	log := activitylog.New(true, logPath, "agent", "sess")
	defer log.Close()

	cfg := &config.Config{Hooks: []config.HookConfig{
		{To: "busy", Command: "echo transition-only", Enabled: true},
		{WorktreeCreated: true, Command: "echo worktree", Enabled: true},
	}}
	e := New(cfg, log)
	e.FireWorktreeCreated(t.TempDir())

	out := waitForLine(t, logPath)
	if !strings.Contains(out, "worktree") || strings.Contains(out, "transition-only") {
		t.Fatalf("expected only the worktree_created hook output, got %q", out)
	}
}


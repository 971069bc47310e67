// Package orchestrator implements the Session Orchestrator: a registry
// of sessions keyed by (project, worktree), with atomic
// create-if-absent-with-attach semantics, aggregated queries, and a
// best-effort destroy_all shutdown sweep.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/ccsup/ccsup/internal/config"
	"github.com/ccsup/ccsup/internal/detector"
	"github.com/ccsup/ccsup/internal/eventbus"
	"github.com/ccsup/ccsup/internal/session"
)

// key identifies a session by the (project, worktree) pair the spec
// requires uniqueness on.
type key struct {
	project  string
	worktree string
}

// Orchestrator holds one session per (project, worktree) pair and
// fans every session's events onto a single orchestrator-wide stream.
type Orchestrator struct {
	mu       sync.Mutex
	sessions map[key]*session.Session
	byID     map[string]*session.Session
	locks    map[string]*flock.Flock

	Bus *eventbus.Bus

	// NewSession builds a not-yet-spawned Session for (project,
	// worktree, preset). Overridable in tests; defaults to
	// session.New wired to Bus.
	NewSession func(project, worktree string, preset config.Preset, extraEnv map[string]string) *session.Session

	// OnStateChange, when set, is wired onto every created session's
	// Session.OnStateChange (the Hook Executor's entry point).
	OnStateChange func(sess *session.Session, old, next detector.State)
}

// New creates an empty Orchestrator publishing onto bus.
func New(bus *eventbus.Bus) *Orchestrator {
	o := &Orchestrator{
		sessions: make(map[key]*session.Session),
		byID:     make(map[string]*session.Session),
		locks:    make(map[string]*flock.Flock),
		Bus:      bus,
	}
	o.NewSession = func(project, worktree string, preset config.Preset, extraEnv map[string]string) *session.Session {
		return session.New(project, worktree, preset, bus, extraEnv)
	}
	return o
}

// Attach returns the existing session for (project, worktree) if one
// exists, or atomically creates and spawns a new one. Concurrent
// callers racing on the same pair are guaranteed to observe the same
// *session.Session and never cause a duplicate PTY (spec §4.7).
func (o *Orchestrator) Attach(ctx context.Context, project, worktree string, preset config.Preset, extraEnv map[string]string, output io.Writer, cols, rows int) (*session.Session, error) {
	k := key{project: project, worktree: worktree}

	o.mu.Lock()
	if sess, ok := o.sessions[k]; ok {
		o.mu.Unlock()
		sess.Attach(output, cols, rows)
		return sess, nil
	}

	lockPath, err := o.acquireLockLocked(worktree)
	if err != nil {
		o.mu.Unlock()
		return nil, fmt.Errorf("acquire session lock for %s: %w", worktree, err)
	}

	sess := o.NewSession(project, worktree, preset, extraEnv)
	if o.OnStateChange != nil {
		sess.OnStateChange = func(old, next detector.State) { o.OnStateChange(sess, old, next) }
	}
	o.sessions[k] = sess
	o.byID[sess.ID] = sess
	o.mu.Unlock()

	if err := sess.Spawn(ctx, cols, rows); err != nil {
		o.remove(k, sess.ID, lockPath)
		return nil, err
	}
	sess.Attach(output, cols, rows)
	return sess, nil
}

// acquireLockLocked takes the durability-backstop file lock for
// worktree, refusing to hand out a session if another supervisor
// process already holds it (e.g. after an unclean restart that left
// the in-memory registry empty but the child process still running
// under a different PID). Caller holds o.mu.
func (o *Orchestrator) acquireLockLocked(worktree string) (string, error) {
	lockDir := filepath.Join(config.ConfigDir(), "locks")
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return "", fmt.Errorf("create lock dir: %w", err)
	}
	lockPath := filepath.Join(lockDir, flockFileName(worktree))
	fl := flock.New(lockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("worktree %s is already locked by another process", worktree)
	}
	o.locks[worktree] = fl
	return lockPath, nil
}

func flockFileName(worktree string) string {
	h := 2166136261
	for i := 0; i < len(worktree); i++ {
		h = (h ^ int(worktree[i])) * 16777619
	}
	return fmt.Sprintf("%x.lock", uint32(h))
}

// Lookup returns the session with the given ID, if any.
func (o *Orchestrator) Lookup(sessionID string) (*session.Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	sess, ok := o.byID[sessionID]
	return sess, ok
}

// List returns every session's ID.
func (o *Orchestrator) List() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, 0, len(o.byID))
	for id := range o.byID {
		ids = append(ids, id)
	}
	return ids
}

// CountByState returns the number of sessions in each confirmed state.
func (o *Orchestrator) CountByState() map[detector.State]int {
	o.mu.Lock()
	sessions := make([]*session.Session, 0, len(o.byID))
	for _, s := range o.byID {
		sessions = append(sessions, s)
	}
	o.mu.Unlock()

	counts := make(map[detector.State]int)
	for _, s := range sessions {
		counts[s.State()]++
	}
	return counts
}

// CountByProject returns the number of sessions per project path.
func (o *Orchestrator) CountByProject() map[string]int {
	o.mu.Lock()
	defer o.mu.Unlock()
	counts := make(map[string]int)
	for k := range o.sessions {
		counts[k.project]++
	}
	return counts
}

// Destroy terminates and removes a single session by ID.
func (o *Orchestrator) Destroy(sessionID string) error {
	o.mu.Lock()
	sess, ok := o.byID[sessionID]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("no such session: %s", sessionID)
	}
	k := key{project: sess.ProjectPath, worktree: sess.WorktreePath}
	o.mu.Unlock()

	sess.Terminate()
	o.remove(k, sessionID, "")
	return nil
}

// DestroyAll terminates every session. Termination is best-effort: a
// failure destroying one session is logged via onErr (if non-nil) and
// does not abort the sweep (spec §4.7).
func (o *Orchestrator) DestroyAll(onErr func(sessionID string, err error)) {
	o.mu.Lock()
	ids := make([]string, 0, len(o.byID))
	for id := range o.byID {
		ids = append(ids, id)
	}
	o.mu.Unlock()

	for _, id := range ids {
		func() {
			defer func() {
				if r := recover(); r != nil && onErr != nil {
					onErr(id, fmt.Errorf("panic destroying session: %v", r))
				}
			}()
			if err := o.Destroy(id); err != nil && onErr != nil {
				onErr(id, err)
			}
		}()
	}
}

func (o *Orchestrator) remove(k key, sessionID string, _ string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if sess, ok := o.sessions[k]; ok && sess.ID == sessionID {
		delete(o.sessions, k)
	}
	delete(o.byID, sessionID)
	if fl, ok := o.locks[k.worktree]; ok {
		fl.Unlock()
		delete(o.locks, k.worktree)
	}
}

// Package session implements the Session: the run-time triple of one
// PTY child (via internal/ptyproc), one virtual terminal, and one
// confirmed state record (via internal/statemachine), bound to a
// single worktree path, with attach/detach semantics for a single
// operator.
package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ccsup/ccsup/internal/autoapprove"
	"github.com/ccsup/ccsup/internal/config"
	"github.com/ccsup/ccsup/internal/detector"
	"github.com/ccsup/ccsup/internal/eventbus"
	"github.com/ccsup/ccsup/internal/ptyproc"
	"github.com/ccsup/ccsup/internal/statemachine"
)

// ReservedShortcut is the input byte sequence that means "return to
// menu" (spec §4.6 send_input): detach the session and let the
// orchestrator's caller fall back to its session picker, instead of
// forwarding the keystroke to the child. Ctrl+\ (ASCII FS) is chosen
// because none of the supported agent CLIs bind it.
var ReservedShortcut = []byte{0x1c}

// TickInterval is how often the session's classification loop
// re-evaluates the detector against the current screen.
const TickInterval = statemachine.DefaultTick

// Session owns one PTY + virtual terminal + detector + mutex-protected
// state triple, matching spec §3's Session record.
type Session struct {
	ID           string
	ProjectPath  string
	WorktreePath string
	Preset       config.Preset

	manager  *ptyproc.Manager
	engine   *statemachine.Engine
	detector detector.Detector
	bgDetect detector.BackgroundTaskDetector
	bus      *eventbus.Bus
	store    *eventbus.Store
	pipeline *autoapprove.Pipeline

	mu           sync.Mutex
	attached     bool
	isPrimary    bool
	cancelHandle *autoapprove.Handle
	lastActivity time.Time

	stopCh chan struct{}
	output io.Writer // forwarding destination while attached, nil otherwise

	// OnStateChange is invoked with (old, next) on every confirmed
	// transition, after the corresponding event has been published.
	// The orchestrator wires this to the Hook Executor.
	OnStateChange func(old, next detector.State)
}

// Option configures optional Session collaborators.
type Option func(*Session)

// WithAutoApproval wires the auto-approval pipeline and enablement
// flag into the session.
func WithAutoApproval(pipeline *autoapprove.Pipeline, enabled func() bool) Option {
	return func(s *Session) {
		s.pipeline = pipeline
		s.engine = statemachine.New(
			statemachine.WithPersistenceWindow(statemachine.DefaultPersistenceWindow),
			statemachine.WithAutoApprovalEnabled(enabled),
		)
	}
}

// WithEventStore wires a durable JSONL mirror of this session's
// published events.
func WithEventStore(store *eventbus.Store) Option {
	return func(s *Session) { s.store = store }
}

// WithID overrides the generated session identifier. Used by callers
// that need the ID before Spawn (e.g. to create the session directory
// an event store or activity log will live in).
func WithID(id string) Option {
	return func(s *Session) { s.ID = id }
}

// New creates a Session for preset bound to worktreePath, not yet
// spawned. extraEnv is merged into the child's environment.
func New(projectPath, worktreePath string, preset config.Preset, bus *eventbus.Bus, extraEnv map[string]string, opts ...Option) *Session {
	s := &Session{
		ID:           uuid.New().String(),
		ProjectPath:  projectPath,
		WorktreePath: worktreePath,
		Preset:       preset,
		manager:      ptyproc.New(preset, worktreePath, extraEnv),
		detector:     detector.For(preset.Detector),
		bgDetect:     detector.BackgroundTaskFor(preset.Detector),
		bus:          bus,
		isPrimary:    true,
		stopCh:       make(chan struct{}),
		lastActivity: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = statemachine.New()
	}
	return s
}

// Spawn starts the preset's primary command in a PTY sized cols x
// rows (spec §4.5: defaults to the operator terminal's own
// dimensions, or 80x24), publishes session_created, and starts the
// classification and output pipeline loops.
func (s *Session) Spawn(ctx context.Context, cols, rows int) error {
	if err := s.manager.Spawn(cols, rows); err != nil {
		return fmt.Errorf("spawn session %s: %w", s.ID, err)
	}
	s.publish(eventbus.Event{Kind: eventbus.KindSessionCreated, SessionID: s.ID})

	go s.manager.PipeOutput(s.onData)
	go s.tickLoop(ctx)
	go s.waitLoop(ctx)
	return nil
}

// Attach marks the session active, publishes session_restore with the
// current screen replay, and requests a resize to the operator's
// current terminal dimensions. Subsequent PTY output is forwarded to
// output until Detach is called.
func (s *Session) Attach(output io.Writer, cols, rows int) {
	s.mu.Lock()
	s.attached = true
	s.output = output
	replay := s.manager.VT.Replay()
	s.mu.Unlock()

	s.publish(eventbus.Event{Kind: eventbus.KindSessionRestore, SessionID: s.ID, Restore: &eventbus.RestorePayload{Bytes: replay}})
	s.Resize(cols, rows)
}

// Detach marks the session inactive. The classification and
// event-publishing pipeline keeps running; only forwarding to the
// operator's output stream stops.
func (s *Session) Detach() {
	s.mu.Lock()
	s.attached = false
	s.output = nil
	s.mu.Unlock()
}

// IsAttached reports whether an operator is currently attached.
func (s *Session) IsAttached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

// SendInput filters operator keystrokes per spec §4.6: the reserved
// "return to menu" shortcut detaches instead of being forwarded, and
// any in-flight auto-approval verification is cancelled before
// forwarding anything else, since a keystroke means the operator is
// taking over the decision.
func (s *Session) SendInput(p []byte) (detached bool, err error) {
	if bytes.Equal(p, ReservedShortcut) {
		s.Detach()
		return true, nil
	}

	s.mu.Lock()
	if s.cancelHandle != nil {
		s.cancelHandle.Cancel()
		s.cancelHandle = nil
	}
	s.mu.Unlock()

	_, err = s.manager.Write(p)
	return false, err
}

// Resize forwards a resize to the PTY and virtual terminal.
func (s *Session) Resize(cols, rows int) {
	s.manager.Resize(cols, rows)
}

// Terminate cancels any in-flight auto-approval, kills the child,
// stops the session's loops, and publishes session_destroyed. The
// caller (orchestrator) is responsible for removing the session from
// its registry.
func (s *Session) Terminate() {
	s.mu.Lock()
	if s.cancelHandle != nil {
		s.cancelHandle.Cancel()
		s.cancelHandle = nil
	}
	s.mu.Unlock()

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.manager.Kill()
	s.publish(eventbus.Event{Kind: eventbus.KindSessionDestroyed, SessionID: s.ID})
	if s.store != nil {
		s.store.Close()
	}
}

// State returns the currently confirmed state.
func (s *Session) State() detector.State {
	return s.engine.State()
}

// LastActivity returns the timestamp of the most recent PTY output.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// HasBackgroundTask reports the most recently observed background
// task flag.
func (s *Session) HasBackgroundTask() bool {
	return s.engine.HasBackgroundTask()
}

// IsPrimaryCommand reports whether the session is still running the
// preset's primary command (false after a fallback respawn).
func (s *Session) IsPrimaryCommand() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isPrimary
}

// --- autoapprove.Session implementation ---

// VisibleLines returns the trailing n lines of the virtual terminal's
// screen content.
func (s *Session) VisibleLines(n int) []string {
	return s.manager.VT.Lines(n)
}

// InPendingAutoApproval reports whether the confirmed state is still
// pending_auto_approval, used by the pipeline to detect the session
// moved on while verification was in flight.
func (s *Session) InPendingAutoApproval() bool {
	return s.engine.State() == detector.StatePendingAutoApproval
}

// WriteConfirm writes a single carriage return to confirm the
// on-screen prompt.
func (s *Session) WriteConfirm() error {
	_, err := s.manager.Write([]byte("\r"))
	return err
}

// ForceBusy force-transitions the confirmed state to busy.
func (s *Session) ForceBusy() {
	old := s.engine.State()
	s.engine.ForceState(detector.StateBusy)
	s.publishStateChanged(old, detector.StateBusy)
}

// BlockWaitingInput transitions to waiting_input and records the
// block reason, so the next waiting_input confirmation does not
// re-enter auto-approval for this prompt.
func (s *Session) BlockWaitingInput(reason string) {
	old := s.engine.State()
	s.engine.Block(reason)
	s.engine.ForceState(detector.StateWaitingInput)
	s.publishStateChanged(old, detector.StateWaitingInput)
}

// SetCancelHandle installs (or clears, when nil) the session's
// auto-approval cancellation handle.
func (s *Session) SetCancelHandle(h *autoapprove.Handle) {
	s.mu.Lock()
	s.cancelHandle = h
	s.mu.Unlock()
}

// --- internal loops ---

// onData is invoked by the PTY pipe goroutine with each newly-read
// chunk, while vt.Mu is already held by the caller (internal/vt.VT.PipeOutput).
// It must not lock vt.Mu itself or call anything that does (Lines,
// Replay), and must not retain chunk past the call.
func (s *Session) onData(chunk []byte) {
	s.mu.Lock()
	s.lastActivity = time.Now()
	out := s.output
	s.mu.Unlock()

	if out != nil {
		// Best-effort forward; a write error to a detached/closed
		// operator stream does not affect session state.
		_, _ = out.Write(chunk)
	}

	data := make([]byte, len(chunk))
	copy(data, chunk)
	s.publish(eventbus.Event{Kind: eventbus.KindSessionData, SessionID: s.ID, Data: &eventbus.DataPayload{Bytes: data}})
}

func (s *Session) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			old := s.engine.State()
			lines := s.manager.VT.Lines(detector.VisibleWindow)
			result := s.engine.Tick(s.detector, s.bgDetect, lines, now)
			if !result.Confirmed {
				continue
			}
			s.publishStateChanged(old, result.State)

			if result.EnteredPendingAuto && s.pipeline != nil {
				s.pipeline.Attempt(ctx, s)
			}
		}
	}
}

func (s *Session) waitLoop(ctx context.Context) {
	for {
		info := s.manager.Wait()

		select {
		case <-s.stopCh:
			return
		default:
		}

		s.mu.Lock()
		primary := s.isPrimary
		s.mu.Unlock()

		if ptyproc.ShouldRespawn(info, primary) {
			if err := s.manager.Respawn(ptyproc.DefaultCols, ptyproc.DefaultRows); err == nil {
				s.mu.Lock()
				s.isPrimary = false
				s.mu.Unlock()
				s.publish(eventbus.Event{
					Kind:      eventbus.KindSessionProcessReplaced,
					SessionID: s.ID,
					ProcessReplaced: &eventbus.ProcessReplacedPayload{
						PresetID: s.Preset.ID,
						Fallback: true,
					},
				})
				go s.manager.PipeOutput(s.onData)
				continue
			}
		}

		s.publish(eventbus.Event{
			Kind:      eventbus.KindSessionExit,
			SessionID: s.ID,
			Exit:      &eventbus.ExitPayload{Code: info.Code, Signaled: info.Signaled},
		})
		return
	}
}

func (s *Session) publishStateChanged(old, next detector.State) {
	s.publish(eventbus.Event{
		Kind:      eventbus.KindSessionStateChanged,
		SessionID: s.ID,
		StateChanged: &eventbus.StateChangedPayload{
			From: old.String(),
			To:   next.String(),
		},
	})
	if s.OnStateChange != nil {
		s.OnStateChange(old, next)
	}
}

func (s *Session) publish(ev eventbus.Event) {
	ev.Time = time.Now()
	if s.bus != nil {
		ev = s.bus.Publish(ev)
	}
	if s.store != nil {
		_ = s.store.Append(ev)
	}
}

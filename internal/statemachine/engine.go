// Package statemachine implements the debounce and transition engine
// that sits between a detector's raw classification and a session's
// confirmed state: it suppresses transient redraws, applies the
// persistence window, and layers the one-shot waiting_input →
// pending_auto_approval upgrade.
package statemachine

import (
	"sync"
	"time"

	"github.com/ccsup/ccsup/internal/detector"
)

// DefaultTick is how often the engine re-evaluates the detector
// against the current screen.
const DefaultTick = 500 * time.Millisecond

// DefaultPersistenceWindow is the minimum time a candidate
// classification must hold before it is confirmed.
const DefaultPersistenceWindow = 1500 * time.Millisecond

// pending tracks a not-yet-confirmed candidate classification.
type pending struct {
	candidate detector.State
	since     time.Time
}

// Engine runs the per-session tick algorithm of spec §4.3. It is safe
// for concurrent use; State/IsAutoApprovalBlocked are read by the
// attach path while Tick runs on its own goroutine.
type Engine struct {
	mu sync.Mutex

	persistenceWindow   time.Duration
	autoApprovalEnabled func() bool

	current            detector.State
	pend               *pending
	autoApprovalBlocked bool
	blockedReason       string
	backgroundTask     bool
	changedCh          chan struct{}

	// upgraded records whether the current confirmed waiting_input has
	// already been upgraded to pending_auto_approval for this prompt,
	// so the upgrade fires only once until the prompt resolves.
	upgraded bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithPersistenceWindow overrides DefaultPersistenceWindow.
func WithPersistenceWindow(d time.Duration) Option {
	return func(e *Engine) { e.persistenceWindow = d }
}

// WithAutoApprovalEnabled supplies a callback reporting whether
// auto-approval is globally enabled, consulted on every confirmed
// waiting_input transition.
func WithAutoApprovalEnabled(fn func() bool) Option {
	return func(e *Engine) { e.autoApprovalEnabled = fn }
}

// New creates an Engine starting in the idle state.
func New(opts ...Option) *Engine {
	e := &Engine{
		persistenceWindow:   DefaultPersistenceWindow,
		autoApprovalEnabled: func() bool { return false },
		current:             detector.StateIdle,
		changedCh:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the currently confirmed state.
func (e *Engine) State() detector.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Changed returns a channel that is closed the next time the
// confirmed state changes, mirroring the teacher's stateCh idiom.
func (e *Engine) Changed() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.changedCh
}

// IsAutoApprovalBlocked reports whether the session is currently
// blocked from further auto-approval attempts for the active prompt.
func (e *Engine) IsAutoApprovalBlocked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.autoApprovalBlocked
}

// BlockedReason returns the diagnostic reason recorded when
// auto-approval was last blocked.
func (e *Engine) BlockedReason() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.blockedReason
}

// HasBackgroundTask reports the most recently refreshed background
// task flag.
func (e *Engine) HasBackgroundTask() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backgroundTask
}

// Block sets auto_approval_blocked with a reason, called by the
// auto-approval pipeline when the oracle reports needsPermission=true.
func (e *Engine) Block(reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.autoApprovalBlocked = true
	e.blockedReason = reason
}

// ForceState overrides the confirmed state without going through
// debounce, used by the auto-approval pipeline's step 6 (force a
// transition to busy right after writing the confirming carriage
// return, so the engine does not re-enter on the next tick before the
// agent has redrawn the screen). Forcing a state outside the
// waiting_input/pending_auto_approval cluster resolves the prompt, so
// it clears the block flags and the one-shot upgrade the same way a
// debounce-confirmed transition would — otherwise a second prompt in
// the same run, reached via ForceState instead of a confirmed tick,
// would never re-upgrade to pending_auto_approval.
func (e *Engine) ForceState(s detector.State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s != detector.StateWaitingInput && s != detector.StatePendingAutoApproval {
		e.autoApprovalBlocked = false
		e.blockedReason = ""
		e.upgraded = false
	}
	e.setLocked(s)
	e.pend = nil
}

// TickResult reports what a single Tick call decided, so the caller
// (the session loop) knows whether to publish an event, fire hooks, or
// kick off auto-approval verification.
type TickResult struct {
	Confirmed          bool
	State              detector.State
	EnteredPendingAuto bool
}

// Tick runs one evaluation of the debounce algorithm against the
// detector's classification of the current screen lines.
func (e *Engine) Tick(d detector.Detector, bg detector.BackgroundTaskDetector, lines []string, now time.Time) TickResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	if bg != nil {
		e.backgroundTask = bg(lines)
	}

	detected := d(lines, e.current)

	if detected == e.current {
		e.pend = nil
		return TickResult{State: e.current}
	}

	if e.pend == nil || e.pend.candidate != detected {
		e.pend = &pending{candidate: detected, since: now}
		return TickResult{State: e.current}
	}

	if now.Sub(e.pend.since) < e.persistenceWindow {
		return TickResult{State: e.current}
	}

	// Confirm the transition.
	confirmed := detected
	e.pend = nil

	if confirmed != detector.StateWaitingInput && confirmed != detector.StatePendingAutoApproval {
		e.autoApprovalBlocked = false
		e.blockedReason = ""
		e.upgraded = false
	}

	enteredPendingAuto := false
	if confirmed == detector.StateWaitingInput && e.autoApprovalEnabled() && !e.autoApprovalBlocked && !e.upgraded {
		confirmed = detector.StatePendingAutoApproval
		e.upgraded = true
		enteredPendingAuto = true
	}

	e.setLocked(confirmed)

	return TickResult{Confirmed: true, State: confirmed, EnteredPendingAuto: enteredPendingAuto}
}

// setLocked updates current and notifies waiters; caller holds mu.
func (e *Engine) setLocked(s detector.State) {
	if e.current != s {
		close(e.changedCh)
		e.changedCh = make(chan struct{})
	}
	e.current = s
}

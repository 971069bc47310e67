package autoapprove

import (
	"context"
	"strings"
	"time"
)

// Session is the subset of session behavior the pipeline needs,
// satisfied by *session.Session. Defined here (rather than importing
// internal/session) to avoid a dependency cycle: internal/session
// imports internal/autoapprove to drive the pipeline.
type Session interface {
	// VisibleLines returns the trailing visible screen lines, most
	// recent last.
	VisibleLines(n int) []string
	// InPendingAutoApproval reports whether the session is still in
	// pending_auto_approval; used to detect that the session moved on
	// while verification was in flight.
	InPendingAutoApproval() bool
	// WriteConfirm writes a single carriage return to the PTY to
	// confirm the on-screen prompt.
	WriteConfirm() error
	// ForceBusy force-transitions the confirmed state to busy,
	// preventing re-entry while the detector still sees the old
	// prompt.
	ForceBusy()
	// BlockWaitingInput transitions to waiting_input and sets
	// auto_approval_blocked with reason.
	BlockWaitingInput(reason string)
	// SetCancelHandle installs (or clears, when nil) the session's
	// auto-approval cancellation handle.
	SetCancelHandle(h *Handle)
}

// Pipeline runs the auto-approval verification flow of spec §4.4
// against a Session.
type Pipeline struct {
	Command Command
	Timeout time.Duration
}

// New creates a Pipeline using the given oracle command (zero value
// Command selects the built-in claude invocation) and timeout (<=0
// selects DefaultTimeout).
func New(cmd Command, timeout time.Duration) *Pipeline {
	return &Pipeline{Command: cmd, Timeout: timeout}
}

// Attempt runs one verification attempt against sess and blocks until
// it settles (verdict applied) or is discarded. Callers invoke this
// from the per-session tick loop whenever the confirmed state enters
// pending_auto_approval and no verification is already in flight.
func (p *Pipeline) Attempt(ctx context.Context, sess Session) {
	lines := sess.VisibleLines(DefaultVisibleLines)
	snapshot := strings.Join(lines, "\n")

	handle, resultCh := Run(ctx, p.Command, snapshot, p.Timeout)
	sess.SetCancelHandle(handle)

	result := <-resultCh
	sess.SetCancelHandle(nil)

	if result.Discarded || !sess.InPendingAutoApproval() {
		return
	}

	if result.Verdict.NeedsPermission {
		reason := result.Verdict.Reason
		sess.BlockWaitingInput(reason)
		return
	}

	if err := sess.WriteConfirm(); err != nil {
		// Treat a failed confirm write the same as a blocked oracle
		// verdict: the operator still needs to act on the prompt.
		sess.BlockWaitingInput("failed to write confirmation: " + err.Error())
		return
	}
	sess.ForceBusy()
}

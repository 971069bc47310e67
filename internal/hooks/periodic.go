package hooks

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/ccsup/ccsup/internal/config"
)

// Scheduler runs the supplemented periodic hook scope (§4.8a): hooks
// configured with an RFC 5545 RRULE Schedule instead of a
// state-transition pair, fired on their own timer against a fixed
// worktree path rather than in response to a session event. This
// mirrors the teacher's dropped heartbeat-nudge feature
// (Session.HeartbeatIdleTimeout/HeartbeatMessage/HeartbeatCondition),
// generalized from "nudge an idle agent" to "run an arbitrary command
// on a recurring schedule."
type Scheduler struct {
	exec *Executor
}

// NewScheduler creates a Scheduler sharing exec's hook table, logger,
// and env injection.
func NewScheduler(exec *Executor) *Scheduler {
	return &Scheduler{exec: exec}
}

// Run starts one goroutine per enabled periodic hook, each firing the
// hook's command against worktreePath at its next scheduled
// occurrence, until stop is closed.
func (s *Scheduler) Run(worktreePath string, stop <-chan struct{}) {
	for _, h := range s.exec.Hooks {
		if !h.Enabled || h.Schedule == "" {
			continue
		}
		go s.runOne(h, worktreePath, stop)
	}
}

func (s *Scheduler) runOne(h config.HookConfig, worktreePath string, stop <-chan struct{}) {
	rule, err := rrule.StrToRRule(h.Schedule)
	if err != nil {
		s.exec.Log.HookCommand("", "scheduled", h.Command, -1, fmt.Sprintf("invalid schedule %q: %v", h.Schedule, err))
		return
	}

	for {
		next := rule.After(time.Now(), false)
		if next.IsZero() {
			return
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			s.exec.run(h, "", "scheduled", worktreePath)
		case <-stop:
			timer.Stop()
			return
		}
	}
}

package cmd

import (
	"github.com/ccsup/ccsup/internal/config"
	"github.com/ccsup/ccsup/internal/eventbus"
)

// lastKnownState scans a session's persisted event log for the most
// recent confirmed state, since `ls`/`status` run in a separate
// process from `run` and have no live orchestrator to query.
// Returns "exited" once a session_exit/session_destroyed event is
// seen, "unknown" when the log is missing or has no state yet.
func lastKnownState(sessionID string) string {
	dir := config.SessionDir(sessionID)
	events, err := eventbus.ReadEventsFile(dir)
	if err != nil {
		return "unknown"
	}

	state := "unknown"
	for _, ev := range events {
		switch ev.Kind {
		case eventbus.KindSessionStateChanged:
			if ev.StateChanged != nil {
				state = ev.StateChanged.To
			}
		case eventbus.KindSessionExit, eventbus.KindSessionDestroyed:
			return "exited"
		}
	}
	return state
}

// isIdleState mirrors the conservative bias of the status check: a
// session whose state can't be determined is treated as active, not
// idle, so --idle never reports a false positive.
func isIdleState(state string) bool {
	return state == "idle" || state == "exited"
}

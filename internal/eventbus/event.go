// Package eventbus implements the Event Bus: a single multi-subscriber
// stream of session lifecycle events, ordered per session identifier,
// with bounded per-subscription queues. Every subscription receives
// events of every kind; there are no per-kind topics.
package eventbus

import "time"

// Kind discriminates the tagged union of events carried on the bus
// (spec §3).
type Kind string

const (
	KindSessionCreated        Kind = "session_created"
	KindSessionDestroyed      Kind = "session_destroyed"
	KindSessionStateChanged   Kind = "session_state_changed"
	KindSessionProcessReplaced Kind = "session_process_replaced"
	KindSessionData           Kind = "session_data"
	KindSessionRestore        Kind = "session_restore"
	KindSessionExit           Kind = "session_exit"
)

// Event is the tagged-union envelope every event publication carries.
// Every event carries the session identifier and a monotonically
// increasing per-session sequence number (spec §3).
type Event struct {
	Kind      Kind
	SessionID string
	Seq       uint64
	Time      time.Time

	// Exactly one of the following is populated, matching Kind.
	StateChanged   *StateChangedPayload   `json:",omitempty"`
	ProcessReplaced *ProcessReplacedPayload `json:",omitempty"`
	Data           *DataPayload           `json:",omitempty"`
	Restore        *RestorePayload        `json:",omitempty"`
	Exit           *ExitPayload           `json:",omitempty"`
}

// StateChangedPayload accompanies KindSessionStateChanged.
type StateChangedPayload struct {
	From string
	To   string
}

// ProcessReplacedPayload accompanies KindSessionProcessReplaced.
type ProcessReplacedPayload struct {
	PresetID string
	Fallback bool
}

// DataPayload accompanies KindSessionData: a chunk of PTY bytes that
// updated the virtual terminal.
type DataPayload struct {
	Bytes []byte
}

// RestorePayload accompanies KindSessionRestore: the replay bytes sent
// to an operator on attach.
type RestorePayload struct {
	Bytes []byte
}

// ExitPayload accompanies KindSessionExit.
type ExitPayload struct {
	Code     int
	Signaled bool
}

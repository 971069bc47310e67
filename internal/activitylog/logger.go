// Package activitylog writes a JSONL trail of session activity —
// hook firings, permission decisions, state transitions, spawn/respawn
// events, and auto-approval oracle calls — for diagnostics and audit,
// independent of the Event Bus (which exists for live subscribers,
// not durable history).
package activitylog

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Logger appends JSON lines to a file, tagging every entry with the
// actor and session ID it was constructed with. A disabled or Nop
// Logger accepts every call and does nothing, so callers never need a
// nil check.
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	enabled bool
	actor   string
	session string
}

// New opens (creating if necessary) the JSONL file at path for
// appending, tagging every entry with actor and sessionID. When
// enabled is false, the returned Logger is a no-op and the file is
// never created.
func New(enabled bool, path, actor, sessionID string) *Logger {
	l := &Logger{enabled: enabled, actor: actor, session: sessionID}
	if !enabled {
		return l
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		// Logging failures must not break the session; fall back to
		// a no-op logger.
		l.enabled = false
		return l
	}
	l.file = f
	return l
}

// Nop returns a Logger that discards everything, for callers that
// have no session context to log against.
func Nop() *Logger {
	return &Logger{enabled: false}
}

// Close closes the underlying file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// HookEvent records a Claude-style hook firing. toolName is omitted
// when empty.
func (l *Logger) HookEvent(hookEvent, toolName string) {
	entry := map[string]any{"event": "hook", "hook_event": hookEvent}
	if toolName != "" {
		entry["tool_name"] = toolName
	}
	l.write(entry)
}

// PermissionDecision records an auto-approval or manual permission
// decision for a tool invocation.
func (l *Logger) PermissionDecision(toolName, decision, reason string) {
	l.write(map[string]any{
		"event":     "permission_decision",
		"tool_name": toolName,
		"decision":  decision,
		"reason":    reason,
	})
}

// OtelMetrics records a token/cost usage snapshot.
func (l *Logger) OtelMetrics(inputTokens, outputTokens int64, costUSD float64) {
	l.write(map[string]any{
		"event":         "otel_metrics",
		"input_tokens":  inputTokens,
		"output_tokens": outputTokens,
		"cost_usd":      costUSD,
	})
}

// OtelConnected records that the OTEL collector accepted a connection
// on endpoint.
func (l *Logger) OtelConnected(endpoint string) {
	l.write(map[string]any{"event": "otel_connected", "endpoint": endpoint})
}

// StateChange records a confirmed detector state transition.
func (l *Logger) StateChange(from, to string) {
	l.write(map[string]any{"event": "state_change", "from": from, "to": to})
}

// ProcessRespawned records a primary→fallback respawn (spec §4.5).
func (l *Logger) ProcessRespawned(presetID string, fallbackArgs []string) {
	l.write(map[string]any{
		"event":         "process_respawned",
		"preset_id":     presetID,
		"fallback_args": fallbackArgs,
	})
}

// HookCommand records one fire-and-forget hook invocation's outcome
// (spec §4.8: exit status is logged but never affects session state).
func (l *Logger) HookCommand(fromState, toState, command string, exitCode int, output string) {
	l.write(map[string]any{
		"event":      "hook_command",
		"from":       fromState,
		"to":         toState,
		"command":    command,
		"exit_code":  exitCode,
		"output":     output,
	})
}

// OracleCall records one auto-approval oracle invocation's verdict.
func (l *Logger) OracleCall(needsPermission bool, reason string, durationMs int64, discarded bool) {
	l.write(map[string]any{
		"event":            "oracle_call",
		"needs_permission": needsPermission,
		"reason":           reason,
		"duration_ms":      durationMs,
		"discarded":        discarded,
	})
}

func (l *Logger) write(fields map[string]any) {
	if !l.enabled {
		return
	}
	fields["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	fields["actor"] = l.actor
	fields["session_id"] = l.session

	data, err := json.Marshal(fields)
	if err != nil {
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Write(data)
	}
}

// Package detector classifies an agent's on-screen text into a base
// activity state. Every detector is a pure function of the visible
// screen and the previously confirmed state; detectors hold no state
// of their own and perform no I/O.
package detector

// State is the base classification a Detector produces. The Debounce
// & Transition Engine (internal/statemachine) is solely responsible
// for turning a run of identical classifications into a confirmed
// state and for layering pending_auto_approval on top of waiting_input.
type State int

const (
	// StateIdle means the agent is not working and not waiting on the
	// operator.
	StateIdle State = iota
	// StateBusy means the agent is actively working (streaming output,
	// running a tool, thinking).
	StateBusy
	// StateWaitingInput means the agent has displayed an interactive
	// prompt that needs an operator decision.
	StateWaitingInput
	// StatePendingAutoApproval is never produced by a Detector; it is
	// layered on top of a confirmed StateWaitingInput by the debounce
	// engine when auto-approval applies.
	StatePendingAutoApproval
)

// String returns the wire/log name for a state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	case StateWaitingInput:
		return "waiting_input"
	case StatePendingAutoApproval:
		return "pending_auto_approval"
	default:
		return "unknown"
	}
}

// Strategy names the detector family selected for a session at
// creation time, matched to a Command Preset's detector tag.
type Strategy string

const (
	StrategyClaude   Strategy = "claude"
	StrategyGemini   Strategy = "gemini"
	StrategyCodex    Strategy = "codex"
	StrategyCursor   Strategy = "cursor"
	StrategyCopilot  Strategy = "copilot"
	StrategyCline    Strategy = "cline"
	StrategyUnknown  Strategy = "unknown"
)

// Detector is a pure function from the last visible screen lines (and
// the previously confirmed state, needed only for the rare
// suppressed-classification rule) to a classified state.
type Detector func(lines []string, previous State) State

// BackgroundTaskDetector reports whether the screen shows evidence of
// a background task running alongside the main interaction. It is
// surfaced separately from the main state per the spec's "background
// task" flag and is not part of state transitions.
type BackgroundTaskDetector func(lines []string) bool

// registry maps each known strategy to its detector and background
// task heuristic. Unknown strategies fall back to the Claude detector.
var registry = map[Strategy]Detector{
	StrategyClaude:  DetectClaude,
	StrategyGemini:  DetectGemini,
	StrategyCodex:   DetectCodex,
	StrategyCursor:  DetectCursor,
	StrategyCopilot: DetectCopilot,
	StrategyCline:   DetectCline,
}

var backgroundRegistry = map[Strategy]BackgroundTaskDetector{
	StrategyClaude:  BackgroundTaskClaude,
	StrategyGemini:  BackgroundTaskGemini,
	StrategyCodex:   BackgroundTaskCodex,
	StrategyCursor:  BackgroundTaskCursor,
	StrategyCopilot: BackgroundTaskCopilot,
	StrategyCline:   BackgroundTaskCline,
}

// For looks up the Detector registered for a strategy, falling back
// to the Claude detector for any strategy this registry doesn't know
// about (spec: "Unknown strategy falls back to the Claude detector").
func For(strategy Strategy) Detector {
	if d, ok := registry[strategy]; ok {
		return d
	}
	return DetectClaude
}

// BackgroundTaskFor looks up the background-task heuristic registered
// for a strategy, falling back to the Claude heuristic for unknown
// strategies.
func BackgroundTaskFor(strategy Strategy) BackgroundTaskDetector {
	if d, ok := backgroundRegistry[strategy]; ok {
		return d
	}
	return BackgroundTaskClaude
}

// VisibleWindow is the number of trailing screen lines detectors
// classify against.
const VisibleWindow = 30

// Window returns the last n lines of lines (all of them when n is
// out of range), unchanged; lowercasing and joining for matching
// happen in the detectors themselves.
func Window(lines []string, n int) []string {
	if n <= 0 || n > len(lines) {
		n = len(lines)
	}
	return lines[len(lines)-n:]
}

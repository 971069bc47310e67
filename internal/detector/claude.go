package detector

import "regexp"

var claudePromptRe = regexp.MustCompile(`(?is)(do you want|would you like).+\n+.*?(yes|❯)`)

// DetectClaude implements the Claude Code detector. Rule order is the
// contract: the first matching rule wins.
func DetectClaude(lines []string, previous State) State {
	text := screenText(lines)

	// A toggle hint means the permission UI is present but a transient
	// redraw is in progress; keep whatever state was already confirmed
	// rather than reclassify off a half-drawn screen.
	if contains(text, "ctrl+r to toggle") {
		return previous
	}
	if claudePromptRe.MatchString(text) {
		return StateWaitingInput
	}
	if contains(text, "esc to interrupt") {
		return StateBusy
	}
	return StateIdle
}

// BackgroundTaskClaude reports whether Claude Code shows evidence of a
// running background task (its "background bash" banner style).
func BackgroundTaskClaude(lines []string) bool {
	text := screenText(lines)
	return containsAny(text, "running in background", "background task")
}

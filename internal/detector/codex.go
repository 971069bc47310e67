package detector

import "regexp"

var (
	codexPromptRe = regexp.MustCompile(`(?is)(do you want|would you like).*?\n+.*?\byes\b`)
	codexBusyRe   = regexp.MustCompile(`esc.*interrupt`)
)

// DetectCodex implements the Codex CLI detector.
func DetectCodex(lines []string, previous State) State {
	text := screenText(lines)

	if containsAny(text, "allow command?", "[y/n]", "yes (y)") {
		return StateWaitingInput
	}
	if codexPromptRe.MatchString(text) {
		return StateWaitingInput
	}
	if codexBusyRe.MatchString(text) {
		return StateBusy
	}
	return StateIdle
}

// BackgroundTaskCodex reports background shell execution in Codex CLI.
func BackgroundTaskCodex(lines []string) bool {
	text := screenText(lines)
	return contains(text, "background")
}

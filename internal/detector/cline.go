package detector

import "regexp"

var (
	clineWaitingRe = regexp.MustCompile(`(?is)\[(act|plan) mode\].*\n.*yes`)
	clineIdleRe    = regexp.MustCompile(`(?is)\[(act|plan) mode\].*cline is ready for your message`)
)

// DetectCline implements the Cline detector. Unlike the other agents,
// Cline's default state within its mode banner is busy; idle and
// waiting_input both require a specific phrase match.
func DetectCline(lines []string, previous State) State {
	text := screenText(lines)

	if clineWaitingRe.MatchString(text) || contains(text, "let cline use this tool") {
		return StateWaitingInput
	}
	if clineIdleRe.MatchString(text) || contains(text, "cline is ready for your message") {
		return StateIdle
	}
	return StateBusy
}

// BackgroundTaskCline reports background shell execution in Cline.
func BackgroundTaskCline(lines []string) bool {
	text := screenText(lines)
	return contains(text, "running in background")
}

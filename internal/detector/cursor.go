package detector

import "regexp"

var cursorAutoRe = regexp.MustCompile(`auto .* \(shift\+tab\)`)

// DetectCursor implements the Cursor agent CLI detector.
func DetectCursor(lines []string, previous State) State {
	text := screenText(lines)

	if containsAny(text, "(y) (enter)", "keep (n)") || cursorAutoRe.MatchString(text) {
		return StateWaitingInput
	}
	if contains(text, "ctrl+c to stop") {
		return StateBusy
	}
	return StateIdle
}

// BackgroundTaskCursor reports background shell execution in Cursor.
func BackgroundTaskCursor(lines []string) bool {
	text := screenText(lines)
	return contains(text, "running in background")
}

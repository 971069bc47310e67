package detector

import "regexp"

var geminiPromptRe = regexp.MustCompile(`(?is)(allow execution|do you want to|apply this change).*?\n+.*?\byes\b`)

// DetectGemini implements the Gemini CLI detector.
func DetectGemini(lines []string, previous State) State {
	text := screenText(lines)

	if containsAny(text,
		"│ apply this change?",
		"│ allow execution?",
		"│ do you want to proceed?",
	) {
		return StateWaitingInput
	}
	if geminiPromptRe.MatchString(text) {
		return StateWaitingInput
	}
	if contains(text, "esc to cancel") {
		return StateBusy
	}
	return StateIdle
}

// BackgroundTaskGemini reports background shell execution in Gemini CLI.
func BackgroundTaskGemini(lines []string) bool {
	text := screenText(lines)
	return contains(text, "running in background")
}

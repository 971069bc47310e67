package detector

// DetectCopilot implements the GitHub Copilot CLI detector.
func DetectCopilot(lines []string, previous State) State {
	text := screenText(lines)

	if contains(text, "│ do you want") {
		return StateWaitingInput
	}
	if contains(text, "esc to cancel") {
		return StateBusy
	}
	return StateIdle
}

// BackgroundTaskCopilot reports background shell execution in Copilot CLI.
func BackgroundTaskCopilot(lines []string) bool {
	text := screenText(lines)
	return contains(text, "running in background")
}

package detector

import "strings"

// screenText lowercases and joins the classification window into a
// single string so rules can use plain substring checks or regexes
// that span line breaks (several rules match a prompt on one line and
// a "yes" affirmation on the next).
func screenText(lines []string) string {
	joined := strings.Join(Window(lines, VisibleWindow), "\n")
	return strings.ToLower(joined)
}

func contains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

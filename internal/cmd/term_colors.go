package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/ccsup/ccsup/internal/config"
	"github.com/ccsup/ccsup/internal/vt"
)

type terminalColorHints struct {
	OscFg     string `json:"osc_fg,omitempty"`
	OscBg     string `json:"osc_bg,omitempty"`
	ColorFGBG string `json:"colorfgbg,omitempty"`
	Term      string `json:"term,omitempty"`
	ColorTerm string `json:"colorterm,omitempty"`
}

// detectTerminalColorHints captures current terminal colors for OSC 10/11
// responses, a COLORFGBG hint for fallback palette selection, and TERM/COLORTERM
// for terminal capability detection.
func detectTerminalColorHints() terminalColorHints {
	var hints terminalColorHints

	// Explicit overrides win (applied at the end).
	overrideFg := os.Getenv("CCSUP_OSC_FG")
	overrideBg := os.Getenv("CCSUP_OSC_BG")
	overrideColorFGBG := os.Getenv("CCSUP_COLORFGBG")

	if term.IsTerminal(int(os.Stdout.Fd())) {
		output := termenv.NewOutput(os.Stdout)
		if fg := output.ForegroundColor(); fg != nil {
			hints.OscFg = vt.ColorToX11(fg)
		}
		if bg := output.BackgroundColor(); bg != nil {
			hints.OscBg = vt.ColorToX11(bg)
		}

		hints.ColorFGBG = os.Getenv("COLORFGBG")
		if hints.ColorFGBG == "" {
			// Keep a simple, widely used fallback format when COLORFGBG is unset.
			if output.HasDarkBackground() {
				hints.ColorFGBG = "15;0"
			} else {
				hints.ColorFGBG = "0;15"
			}
		}

		hints.Term = os.Getenv("TERM")
		hints.ColorTerm = os.Getenv("COLORTERM")

		_ = persistTerminalColorHints(hints)
	} else if cached, ok := loadTerminalColorHints(); ok {
		hints = cached
	}

	if hints.ColorFGBG == "" {
		hints.ColorFGBG = os.Getenv("COLORFGBG")
	}

	if overrideFg != "" {
		hints.OscFg = overrideFg
	}
	if overrideBg != "" {
		hints.OscBg = overrideBg
	}
	if overrideColorFGBG != "" {
		hints.ColorFGBG = overrideColorFGBG
	}

	return hints
}

// refreshTerminalColorHintsCache updates terminal color hints on disk when this
// process has a TTY. Non-TTY invocations are a no-op.
func refreshTerminalColorHintsCache() {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		detectTerminalColorHints()
	}
}

func terminalColorHintsPath() string {
	return filepath.Join(config.ConfigDir(), "terminal-colors.json")
}

func persistTerminalColorHints(h terminalColorHints) error {
	path := terminalColorHintsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func loadTerminalColorHints() (terminalColorHints, bool) {
	data, err := os.ReadFile(terminalColorHintsPath())
	if err != nil {
		return terminalColorHints{}, false
	}
	var h terminalColorHints
	if err := json.Unmarshal(data, &h); err != nil {
		return terminalColorHints{}, false
	}
	return h, true
}

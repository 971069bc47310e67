package cmd

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestTerminalColorHints_RoundTrip(t *testing.T) {
	t.Setenv("CCSUP_DIR", t.TempDir())

	original := terminalColorHints{
		OscFg:     "rgb:ffff/ffff/ffff",
		OscBg:     "rgb:2828/2c2c/3434",
		ColorFGBG: "15;0",
		Term:      "xterm-256color",
		ColorTerm: "truecolor",
	}

	if err := persistTerminalColorHints(original); err != nil {
		t.Fatalf("persistTerminalColorHints: %v", err)
	}

	loaded, ok := loadTerminalColorHints()
	if !ok {
		t.Fatal("loadTerminalColorHints: not found")
	}
	if loaded != original {
		t.Errorf("loaded = %+v, want %+v", loaded, original)
	}
}

func TestTerminalColorHints_LoadMissingFile(t *testing.T) {
	t.Setenv("CCSUP_DIR", t.TempDir())

	if _, ok := loadTerminalColorHints(); ok {
		t.Error("loadTerminalColorHints should report not-found with no cache file")
	}
}

func TestTerminalColorHints_BackwardCompat(t *testing.T) {
	raw := `{"osc_fg":"rgb:ffff/ffff/ffff","osc_bg":"rgb:0000/0000/0000","colorfgbg":"15;0"}`
	var hints terminalColorHints
	if err := json.Unmarshal([]byte(raw), &hints); err != nil {
		t.Fatal(err)
	}
	if hints.Term != "" || hints.ColorTerm != "" {
		t.Errorf("old cache without term/colorterm should leave them empty, got %+v", hints)
	}
}

func TestTerminalColorHints_OmitEmpty(t *testing.T) {
	hints := terminalColorHints{ColorFGBG: "15;0"}
	data, err := json.Marshal(hints)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if strings.Contains(s, "osc_fg") || strings.Contains(s, "\"term\"") || strings.Contains(s, "colorterm") {
		t.Errorf("empty fields should be omitted, got: %s", s)
	}
}

package config

import "github.com/ccsup/ccsup/internal/detector"

// Preset is the immutable Command Preset descriptor from spec §3:
// identifier, display name, executable, primary/fallback argument
// vectors, and the detector strategy tag selected at session creation.
type Preset struct {
	ID           string
	DisplayName  string
	Command      string
	PrimaryArgs  []string
	FallbackArgs []string
	Detector     detector.Strategy
	// Devcontainer records whether this preset's primary command must
	// be wrapped via an exec-into-devcontainer prefix before being
	// handed to the PTY Process Manager (§3a supplemented field).
	Devcontainer bool
	// ExecPrefix is the argv prefix prepended ahead of Command when
	// Devcontainer is true, e.g. ["devcontainer", "exec",
	// "--workspace-folder", "."].
	ExecPrefix []string
}

// builtinPresets is the default Command Preset table, one per
// supported agent family (spec §4.2's exhaustive detector list).
var builtinPresets = []Preset{
	{
		ID:          "claude",
		DisplayName: "Claude Code",
		Command:     "claude",
		PrimaryArgs: nil,
		Detector:    detector.StrategyClaude,
	},
	{
		ID:          "gemini",
		DisplayName: "Gemini CLI",
		Command:     "gemini",
		PrimaryArgs: nil,
		Detector:    detector.StrategyGemini,
	},
	{
		ID:           "codex",
		DisplayName:  "Codex CLI",
		Command:      "codex",
		PrimaryArgs:  nil,
		FallbackArgs: []string{"--no-sandbox"},
		Detector:     detector.StrategyCodex,
	},
	{
		ID:          "cursor",
		DisplayName: "Cursor Agent",
		Command:     "cursor-agent",
		PrimaryArgs: nil,
		Detector:    detector.StrategyCursor,
	},
	{
		ID:          "copilot",
		DisplayName: "GitHub Copilot CLI",
		Command:     "copilot",
		PrimaryArgs: nil,
		Detector:    detector.StrategyCopilot,
	},
	{
		ID:          "cline",
		DisplayName: "Cline",
		Command:     "cline",
		PrimaryArgs: nil,
		Detector:    detector.StrategyCline,
	},
}

// Presets returns the built-in preset table merged with any operator
// overrides/additions from cfg, keyed by ID (an override with a
// matching ID replaces the built-in entry in place; a new ID appends).
func Presets(cfg *Config) []Preset {
	result := make([]Preset, len(builtinPresets))
	copy(result, builtinPresets)

	if cfg == nil {
		return result
	}

	for _, o := range cfg.Presets {
		p := Preset{
			ID:           o.ID,
			DisplayName:  o.DisplayName,
			Command:      o.Command,
			PrimaryArgs:  o.PrimaryArgs,
			FallbackArgs: o.FallbackArgs,
			Detector:     o.Detector,
			Devcontainer: o.Devcontainer,
			ExecPrefix:   o.ExecPrefix,
		}
		replaced := false
		for i := range result {
			if result[i].ID == o.ID {
				result[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			result = append(result, p)
		}
	}
	return result
}

// Find looks up a preset by ID in the merged table.
func Find(cfg *Config, id string) (Preset, bool) {
	for _, p := range Presets(cfg) {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

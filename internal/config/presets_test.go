package config

import (
	"testing"

	"github.com/ccsup/ccsup/internal/detector"
)

func TestPresets_IncludesAllSixBuiltins(t *testing.T) {
	presets := Presets(nil)
	if len(presets) != 6 {
		t.Fatalf("expected 6 built-in presets, got %d", len(presets))
	}
}

func TestFind_BuiltinPreset(t *testing.T) {
	p, ok := Find(nil, "claude")
	if !ok {
		t.Fatal("expected to find claude preset")
	}
	if p.Detector != detector.StrategyClaude {
		t.Errorf("detector = %v, want claude", p.Detector)
	}
}

func TestPresets_OperatorOverrideReplacesBuiltin(t *testing.T) {
	cfg := &Config{
		Presets: []PresetOverride{
			{ID: "claude", Command: "claude-custom", Detector: detector.StrategyClaude},
		},
	}
	p, ok := Find(cfg, "claude")
	if !ok {
		t.Fatal("expected to find overridden claude preset")
	}
	if p.Command != "claude-custom" {
		t.Errorf("Command = %q, want overridden value", p.Command)
	}
}

func TestPresets_OperatorAdditionAppends(t *testing.T) {
	cfg := &Config{
		Presets: []PresetOverride{
			{ID: "custom-agent", Command: "my-agent", Detector: detector.StrategyUnknown},
		},
	}
	presets := Presets(cfg)
	if len(presets) != 7 {
		t.Fatalf("expected 7 presets after addition, got %d", len(presets))
	}
	if _, ok := Find(cfg, "custom-agent"); !ok {
		t.Fatal("expected to find custom-agent preset")
	}
}

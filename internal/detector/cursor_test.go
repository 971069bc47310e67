package detector

import "testing"

func TestDetectCursor(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		previous State
		want     State
	}{
		{
			name:     "y enter literal",
			lines:    []string{"Keep this change? (y) (enter)"},
			previous: StateIdle,
			want:     StateWaitingInput,
		},
		{
			name:     "auto shift+tab regex",
			lines:    []string{"Auto mode (shift+tab) to toggle"},
			previous: StateIdle,
			want:     StateWaitingInput,
		},
		{
			name:     "busy",
			lines:    []string{"ctrl+c to stop"},
			previous: StateIdle,
			want:     StateBusy,
		},
		{
			name:     "idle",
			lines:    []string{"cursor>"},
			previous: StateBusy,
			want:     StateIdle,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectCursor(tt.lines, tt.previous); got != tt.want {
				t.Errorf("DetectCursor() = %v, want %v", got, tt.want)
			}
		})
	}
}

package detector

import "testing"

func TestDetectCodex(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		previous State
		want     State
	}{
		{
			name:     "allow command literal",
			lines:    []string{"Allow command?", "[y/n]"},
			previous: StateIdle,
			want:     StateWaitingInput,
		},
		{
			name:     "yes (y) literal",
			lines:    []string{"yes (y)"},
			previous: StateIdle,
			want:     StateWaitingInput,
		},
		{
			name:     "do you want regex",
			lines:    []string{"Do you want to apply this patch?", "yes"},
			previous: StateIdle,
			want:     StateWaitingInput,
		},
		{
			name:     "busy",
			lines:    []string{"working... esc to interrupt"},
			previous: StateIdle,
			want:     StateBusy,
		},
		{
			name:     "idle",
			lines:    []string{"codex>"},
			previous: StateBusy,
			want:     StateIdle,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectCodex(tt.lines, tt.previous); got != tt.want {
				t.Errorf("DetectCodex() = %v, want %v", got, tt.want)
			}
		})
	}
}

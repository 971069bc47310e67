package detector

import "testing"

func TestDetectCline(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		previous State
		want     State
	}{
		{
			name:     "mode banner with yes prompt",
			lines:    []string{"[ACT MODE]", "Proceed? yes"},
			previous: StateBusy,
			want:     StateWaitingInput,
		},
		{
			name:     "let cline use this tool literal",
			lines:    []string{"Let Cline use this tool?"},
			previous: StateBusy,
			want:     StateWaitingInput,
		},
		{
			name:     "ready for message means idle",
			lines:    []string{"[PLAN MODE]", "Cline is ready for your message"},
			previous: StateBusy,
			want:     StateIdle,
		},
		{
			name:     "default is busy",
			lines:    []string{"[ACT MODE]", "running task..."},
			previous: StateIdle,
			want:     StateBusy,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectCline(tt.lines, tt.previous); got != tt.want {
				t.Errorf("DetectCline() = %v, want %v", got, tt.want)
			}
		})
	}
}

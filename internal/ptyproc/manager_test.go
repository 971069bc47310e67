package ptyproc

import (
	"testing"

	"github.com/ccsup/ccsup/internal/config"
)

func TestShouldRespawn(t *testing.T) {
	tests := []struct {
		name      string
		info      ExitInfo
		isPrimary bool
		want      bool
	}{
		{"exit 1 no signal while primary", ExitInfo{Code: 1}, true, true},
		{"exit 1 no signal but already fallback", ExitInfo{Code: 1}, false, false},
		{"exit 0", ExitInfo{Code: 0}, true, false},
		{"signaled", ExitInfo{Code: 1, Signaled: true}, true, false},
		{"other exit code", ExitInfo{Code: 2}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRespawn(tt.info, tt.isPrimary); got != tt.want {
				t.Errorf("ShouldRespawn(%+v, %v) = %v, want %v", tt.info, tt.isPrimary, got, tt.want)
			}
		})
	}
}

func TestManager_Spawn_TrueChildProcess(t *testing.T) {
	preset := config.Preset{
		ID:          "echo-agent",
		Command:     "sh",
		PrimaryArgs: []string{"-c", "echo hello; sleep 0.2"},
	}
	m := New(preset, t.TempDir(), nil)
	if err := m.Spawn(80, 24); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer m.Kill()

	if !m.IsPrimaryCommand {
		t.Fatal("expected IsPrimaryCommand true immediately after spawn")
	}
	done := make(chan struct{})
	go func() {
		m.PipeOutput(func([]byte) {})
		close(done)
	}()
	<-done

	info := m.Wait()
	if info.Code != 0 {
		t.Fatalf("expected clean exit, got %+v", info)
	}
}

func TestManager_Respawn_MarksNonPrimary(t *testing.T) {
	preset := config.Preset{
		ID:           "fallback-agent",
		Command:      "sh",
		PrimaryArgs:  []string{"-c", "exit 1"},
		FallbackArgs: []string{"-c", "echo fell back; sleep 0.1"},
	}
	m := New(preset, t.TempDir(), nil)
	if err := m.Spawn(80, 24); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	done := make(chan struct{})
	go func() {
		m.PipeOutput(func([]byte) {})
		close(done)
	}()
	<-done
	info := m.Wait()
	if !ShouldRespawn(info, m.IsPrimaryCommand) {
		t.Fatalf("expected exit info to trigger respawn, got %+v", info)
	}

	if err := m.Respawn(80, 24); err != nil {
		t.Fatalf("Respawn: %v", err)
	}
	defer m.Kill()
	if m.IsPrimaryCommand {
		t.Fatal("expected IsPrimaryCommand false after respawn")
	}

	done2 := make(chan struct{})
	go func() {
		m.PipeOutput(func([]byte) {})
		close(done2)
	}()
	<-done2
	info2 := m.Wait()
	if info2.Code != 0 {
		t.Fatalf("expected clean exit from fallback, got %+v", info2)
	}
}

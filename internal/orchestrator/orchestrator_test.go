package orchestrator

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/ccsup/ccsup/internal/config"
	"github.com/ccsup/ccsup/internal/detector"
	"github.com/ccsup/ccsup/internal/eventbus"
	"github.com/ccsup/ccsup/internal/session"
)

func testPreset() config.Preset {
	return config.Preset{
		ID:          "test",
		Command:     "sh",
		PrimaryArgs: []string{"-c", "sleep 5"},
		Detector:    detector.StrategyUnknown,
	}
}

func TestAttach_ConcurrentRaceReturnsSameSession(t *testing.T) {
	t.Setenv("CCSUP_DIR", t.TempDir())
	bus := eventbus.New()
	o := New(bus)
	worktree := t.TempDir()

	var wg sync.WaitGroup
	results := make([]*session.Session, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := o.Attach(context.Background(), "proj", worktree, testPreset(), nil, io.Discard, 80, 24)
			if err != nil {
				t.Errorf("Attach: %v", err)
				return
			}
			results[i] = sess
		}(i)
	}
	wg.Wait()

	first := results[0]
	for _, r := range results {
		if r != first {
			t.Fatal("expected every concurrent Attach to return the same session")
		}
	}
	o.DestroyAll(nil)
}

func TestAttach_DifferentWorktreesGetDifferentSessions(t *testing.T) {
	t.Setenv("CCSUP_DIR", t.TempDir())
	bus := eventbus.New()
	o := New(bus)

	s1, err := o.Attach(context.Background(), "proj", t.TempDir(), testPreset(), nil, io.Discard, 80, 24)
	if err != nil {
		t.Fatalf("Attach 1: %v", err)
	}
	s2, err := o.Attach(context.Background(), "proj", t.TempDir(), testPreset(), nil, io.Discard, 80, 24)
	if err != nil {
		t.Fatalf("Attach 2: %v", err)
	}
	if s1.ID == s2.ID {
		t.Fatal("expected distinct sessions for distinct worktrees")
	}
	if len(o.List()) != 2 {
		t.Fatalf("expected 2 sessions listed, got %d", len(o.List()))
	}
	o.DestroyAll(nil)
}

func TestDestroyAll_TerminatesEverySession(t *testing.T) {
	t.Setenv("CCSUP_DIR", t.TempDir())
	bus := eventbus.New()
	o := New(bus)

	for i := 0; i < 3; i++ {
		if _, err := o.Attach(context.Background(), "proj", t.TempDir(), testPreset(), nil, io.Discard, 80, 24); err != nil {
			t.Fatalf("Attach %d: %v", i, err)
		}
	}
	if len(o.List()) != 3 {
		t.Fatalf("expected 3 sessions before DestroyAll, got %d", len(o.List()))
	}

	var errs []error
	o.DestroyAll(func(id string, err error) { errs = append(errs, err) })

	if len(errs) != 0 {
		t.Fatalf("expected no errors destroying healthy sessions, got %v", errs)
	}
	if len(o.List()) != 0 {
		t.Fatalf("expected 0 sessions after DestroyAll, got %d", len(o.List()))
	}
}

func TestDestroy_UnknownSessionReturnsError(t *testing.T) {
	t.Setenv("CCSUP_DIR", t.TempDir())
	o := New(eventbus.New())
	if err := o.Destroy("does-not-exist"); err == nil {
		t.Fatal("expected error destroying an unknown session ID")
	}
}

func TestCountByState_ReflectsSpawnedSessions(t *testing.T) {
	t.Setenv("CCSUP_DIR", t.TempDir())
	bus := eventbus.New()
	o := New(bus)

	sess, err := o.Attach(context.Background(), "proj", t.TempDir(), testPreset(), nil, &bytes.Buffer{}, 80, 24)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	counts := o.CountByState()
	total := 0
	for _, c := range counts {
		total += c
	}
	if total != 1 {
		t.Fatalf("expected exactly one session counted, got %d", total)
	}
	o.Destroy(sess.ID)
}

package eventbus

import (
	"path/filepath"
	"testing"
)

func TestStore_AppendAndRead(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenStore(dir)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if err := s.Append(Event{Kind: KindSessionCreated, SessionID: "s1", Seq: 1}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(Event{Kind: KindSessionExit, SessionID: "s1", Seq: 2}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	s.Close()

	events, err := ReadEventsFile(dir)
	if err != nil {
		t.Fatalf("ReadEventsFile: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != KindSessionCreated || events[1].Kind != KindSessionExit {
		t.Fatalf("unexpected event kinds: %+v", events)
	}
}

func TestReadEventsFile_MissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadEventsFile(filepath.Join(dir, "nonexistent"))
	if err == nil {
		t.Fatal("expected error reading a missing directory's events file")
	}
}

package eventbus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const eventsFileName = "events.jsonl"

// Store mirrors published events to a JSONL file in a session
// directory, so tools like `ccsup status` can reconstruct history
// without holding a live subscription.
type Store struct {
	file *os.File
}

// OpenStore creates or opens events.jsonl in sessionDir.
func OpenStore(sessionDir string) (*Store, error) {
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return nil, fmt.Errorf("create eventbus store dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(sessionDir, eventsFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	return &Store{file: f}, nil
}

// Append JSON-encodes ev and appends it as a single line.
func (s *Store) Append(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	data = append(data, '\n')
	_, err = s.file.Write(data)
	return err
}

// Close closes the underlying file.
func (s *Store) Close() error {
	return s.file.Close()
}

// ReadEventsFile reads every event from events.jsonl in sessionDir,
// skipping malformed lines.
func ReadEventsFile(sessionDir string) ([]Event, error) {
	f, err := os.Open(filepath.Join(sessionDir, eventsFileName))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return events, err
	}
	return events, nil
}

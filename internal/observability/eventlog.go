package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Event levels.
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Event is one line of the event log.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Type    string         `json:"type"` // e.g. "task.started", "store.persist_failed"
	Message string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// EventFilter selects events when reading. Zero fields match everything.
type EventFilter struct {
	Since      *time.Time
	Until      *time.Time
	Type       string
	TypePrefix string // e.g. "task." for every task event
	Level      string
	ProjectID  string
}

// EventLog is an append-only store of events.
type EventLog interface {
	Write(event Event) error
	Read(filter EventFilter) ([]Event, error)
	Close() error
}

// maxEventLine bounds a single log line when reading.
const maxEventLine = 1 << 20

// fileEventLog keeps one JSON object per line in a local file.
type fileEventLog struct {
	path string
	mu   sync.Mutex
	file *os.File
}

// NewJSONLEventLog opens (or creates) the JSONL event log at path.
func NewJSONLEventLog(path string) (EventLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("opening event log: creating directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &fileEventLog{path: path, file: f}, nil
}

// Write appends event as a single line. A zero Time is stamped with the
// current UTC time and an empty Level with LevelFor.
func (l *fileEventLog) Write(event Event) error {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	if event.Level == "" {
		event.Level = LevelFor(event.Type)
	}
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event.Type, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending %s event: %w", event.Type, err)
	}
	return nil
}

// Recorder returns a function that writes store events to log, timestamped
// by now. Its signature matches core.EventLoggerFunc.
func Recorder(log EventLog, now func() time.Time) func(eventType string, data map[string]any) error {
	return func(eventType string, data map[string]any) error {
		return log.Write(Event{
			Time:    now().UTC(),
			Level:   LevelFor(eventType),
			Type:    eventType,
			Message: MessageFor(eventType),
			Data:    data,
		})
	}
}

// Read returns the events matching filter in write order. Lines that do not
// decode are skipped. A missing file reads as empty.
func (l *fileEventLog) Read(filter EventFilter) ([]Event, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening event log for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		if filter.matches(event) {
			events = append(events, event)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning event log: %w", err)
	}
	return events, nil
}

// Close releases the file handle.
func (l *fileEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing event log: %w", err)
	}
	return nil
}

func (f EventFilter) matches(event Event) bool {
	if f.Since != nil && event.Time.Before(*f.Since) {
		return false
	}
	if f.Until != nil && event.Time.After(*f.Until) {
		return false
	}
	if f.Type != "" && event.Type != f.Type {
		return false
	}
	if f.TypePrefix != "" && !strings.HasPrefix(event.Type, f.TypePrefix) {
		return false
	}
	if f.Level != "" && event.Level != f.Level {
		return false
	}
	if f.ProjectID != "" {
		if id, _ := event.Data["project_id"].(string); id != f.ProjectID {
			return false
		}
	}
	return true
}

// LevelFor returns the level recorded for an event type. Failures are
// warnings; everything else is informational.
func LevelFor(eventType string) string {
	if strings.HasSuffix(eventType, "_failed") {
		return LevelWarn
	}
	return LevelInfo
}

// MessageFor returns a short human-readable message for an event type,
// e.g. "task started" for "task.started".
func MessageFor(eventType string) string {
	return strings.NewReplacer(".", " ", "_", " ").Replace(eventType)
}

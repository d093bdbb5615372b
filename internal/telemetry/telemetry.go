// Package telemetry writes import runs as a JSONL event stream: one line per
// run boundary and one per warning, so diagnostics collaborators can tail the
// file or replay it later.
package telemetry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Event kinds.
const (
	KindImportStart              = "import_start"
	KindImportDone               = "import_done"
	KindGeneratedResourceDropped = "generated_resource_dropped"
	KindNamespaceCollision       = "namespace_collision"
	KindUnusedAllowlistEntry     = "unused_allowlist_entry"
)

// Event is a single JSONL record.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	RunID     string    `json:"run,omitempty"`
	Pass      string    `json:"pass,omitempty"`
	Message   string    `json:"message,omitempty"`
	Subjects  []string  `json:"subjects,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Emitter appends events to a JSONL file. It is safe for concurrent use; a
// nil *Emitter discards events.
type Emitter struct {
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
	now  func() time.Time
}

// NewEmitter opens path for appending, creating it if needed.
func NewEmitter(path string) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{
		file: f,
		enc:  json.NewEncoder(f),
		now:  time.Now,
	}, nil
}

// Emit writes evt, stamping it with the current time if it has none.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if evt.Timestamp.IsZero() {
		evt.Timestamp = e.now().UTC()
	}
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}

// Read decodes every event in r, skipping blank lines. Lines that fail to
// decode are reported through the returned error after the good ones.
func Read(r io.Reader) ([]Event, error) {
	var (
		events []Event
		bad    int
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var evt Event
		if err := json.Unmarshal(line, &evt); err != nil {
			bad++
			continue
		}
		events = append(events, evt)
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("telemetry: read: %w", err)
	}
	if bad > 0 {
		return events, fmt.Errorf("telemetry: %d malformed line(s)", bad)
	}
	return events, nil
}

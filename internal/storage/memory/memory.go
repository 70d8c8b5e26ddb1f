// Package memory archives session events in memory and exports them to a
// JSON file on session end.
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tacmap/relay/internal/model"
)

// Config controls the export location and format.
type Config struct {
	OutputDir      string
	CompressOutput bool
}

// Backend stores session events in memory and exports to JSON.
type Backend struct {
	cfg     Config
	session model.Session
	events  []model.SessionEvent
	seq     uint64

	lastExportPath string
	mu             sync.Mutex
}

// New creates a new memory backend.
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend.
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources.
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session.
func (b *Backend) StartSession(name string, start time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = model.Session{Name: name, StartedAt: start}
	b.session.ID = 1
	b.events = nil
	b.seq = 0
	return nil
}

// RecordEvent appends an event to the session.
func (b *Backend) RecordEvent(e *model.SessionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	e.Seq = b.seq
	e.SessionID = b.session.ID
	b.events = append(b.events, *e)
	return nil
}

// EndSession closes the session and writes the export file.
func (b *Backend) EndSession(end time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session.EndedAt = end
	return b.exportJSON()
}

// ExportedFilePath returns the path of the last written export.
func (b *Backend) ExportedFilePath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastExportPath
}

// EventCount returns the number of recorded events.
func (b *Backend) EventCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// sessionExport is the root JSON structure of an export file.
type sessionExport struct {
	Session model.Session        `json:"session"`
	Events  []model.SessionEvent `json:"events"`
}

// exportJSON writes the session data to a JSON file, optionally gzipped.
// Caller holds the mutex.
func (b *Backend) exportJSON() error {
	name := strings.ReplaceAll(b.session.Name, " ", "_")
	name = strings.ReplaceAll(name, ":", "_")
	timestamp := b.session.StartedAt.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", name, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", name, timestamp)
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	export := sessionExport{
		Session: b.session,
		Events:  b.events,
	}
	if export.Events == nil {
		export.Events = make([]model.SessionEvent, 0)
	}

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

func writeGzipJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()

	enc := json.NewEncoder(gz)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

// Package storage records session activity (pins, shapes, chat) for later
// review. The sync core never depends on it; the channel layer taps events
// into a Backend when archiving is configured.
package storage

import (
	"time"

	"github.com/tacmap/relay/internal/model"
)

// Backend is the interface all archive implementations satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(name string, start time.Time) error
	EndSession(end time.Time) error

	// Event recording
	RecordEvent(e *model.SessionEvent) error
}

// Exportable is an optional interface for backends that produce a file on
// session end.
type Exportable interface {
	ExportedFilePath() string
}

// UploadMetadata describes an exported session archive for upload to a
// review frontend.
type UploadMetadata struct {
	SessionName     string
	DurationSeconds float64
	Tag             string
}

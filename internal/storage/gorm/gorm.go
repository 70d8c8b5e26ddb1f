// Package gorm archives session events through the database manager:
// Postgres when reachable, SQLite otherwise.
package gorm

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tacmap/relay/internal/database"
	"github.com/tacmap/relay/internal/model"
)

// Config controls the gorm backend.
type Config struct {
	OutputDir string // sqlite dump location when saving locally
}

// Backend persists session events through gorm.
type Backend struct {
	cfg     Config
	manager *database.Manager

	mu      sync.Mutex
	session model.Session
	seq     uint64
}

// New creates a gorm backend on top of a database manager.
func New(cfg Config, log zerolog.Logger) *Backend {
	return &Backend{
		cfg:     cfg,
		manager: database.NewManager(log),
	}
}

// Init connects and migrates the archive schema.
func (b *Backend) Init() error {
	if err := b.manager.Connect(); err != nil {
		return fmt.Errorf("archive db connect: %w", err)
	}
	if err := b.manager.Setup(); err != nil {
		return fmt.Errorf("archive db setup: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (b *Backend) Close() error {
	if b.manager.SqlDB != nil {
		return b.manager.SqlDB.Close()
	}
	return nil
}

// StartSession creates the session row.
func (b *Backend) StartSession(name string, start time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = model.Session{Name: name, StartedAt: start}
	b.seq = 0
	if err := b.manager.DB.Create(&b.session).Error; err != nil {
		return fmt.Errorf("create session row: %w", err)
	}

	if b.manager.ShouldSaveLocal {
		filename := strings.ReplaceAll(name, " ", "_") +
			"_" + start.Format("20060102_150405") + ".db"
		b.manager.SqliteFilePath = filepath.Join(b.cfg.OutputDir, filename)
	}
	return nil
}

// RecordEvent inserts one event row.
func (b *Backend) RecordEvent(e *model.SessionEvent) error {
	b.mu.Lock()
	b.seq++
	e.Seq = b.seq
	e.SessionID = b.session.ID
	b.mu.Unlock()

	if err := b.manager.DB.Create(e).Error; err != nil {
		return fmt.Errorf("insert event row: %w", err)
	}
	return nil
}

// EndSession stamps the session row and, when saving locally, dumps the
// in-memory database to disk.
func (b *Backend) EndSession(end time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session.EndedAt = end
	if err := b.manager.DB.Save(&b.session).Error; err != nil {
		return fmt.Errorf("update session row: %w", err)
	}

	if b.manager.ShouldSaveLocal {
		return b.manager.DumpMemoryToDisk()
	}
	return nil
}

// ExportedFilePath returns the sqlite dump path when saving locally.
func (b *Backend) ExportedFilePath() string {
	return b.manager.SqliteFilePath
}

// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tacmap/relay/internal/config"
	storagegorm "github.com/tacmap/relay/internal/storage/gorm"
	"github.com/tacmap/relay/internal/storage/memory"
)

// NewBackend creates an archive backend based on configuration. Backend
// "none" returns nil: archiving is off and the caller skips the tap.
func NewBackend(cfg config.ArchiveConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Backend {
	case "none", "":
		return nil, nil
	case "memory":
		return memory.New(memory.Config{OutputDir: cfg.OutputDir}), nil
	case "gorm", "db":
		return storagegorm.New(storagegorm.Config{OutputDir: cfg.OutputDir}, log), nil
	default:
		return nil, fmt.Errorf("unknown archive backend: %s", cfg.Backend)
	}
}

package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/tacmap/relay/internal/influx"
)

// StatsSource reports the live session gauges the monitor samples.
type StatsSource interface {
	Stats() (participants, pins, groups, shapes, queueDepth int)
}

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	Stats       StatsSource
	Logger      *slog.Logger
	Influx      *influx.Manager
	SessionName string
	StatusDir   string
}

// Service samples session gauges on an interval, mirrors them to a
// status file, and forwards them to InfluxDB when one is configured.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Snapshot is one sampled status line.
type Snapshot struct {
	Time         time.Time `json:"time"`
	Session      string    `json:"session"`
	Participants int       `json:"participants"`
	Pins         int       `json:"pins"`
	Groups       int       `json:"groups"`
	Shapes       int       `json:"shapes"`
	QueueDepth   int       `json:"queueDepth"`
}

// Sample reads the current gauges from the stats source.
func (s *Service) Sample() Snapshot {
	participants, pins, groups, shapes, queueDepth := s.deps.Stats.Stats()
	return Snapshot{
		Time:         time.Now(),
		Session:      s.deps.SessionName,
		Participants: participants,
		Pins:         pins,
		Groups:       groups,
		Shapes:       shapes,
		QueueDepth:   queueDepth,
	}
}

// Start starts the status monitor goroutine. The sampling interval
// comes from the monitor.interval config key.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	interval := viper.GetDuration("monitor.interval")
	if interval <= 0 {
		interval = 30 * time.Second
	}

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.Logger
		logger.Debug("starting status monitor", "interval", interval)

		var statusFile *os.File
		if s.deps.StatusDir != "" {
			var err error
			statusFile, err = os.Create(filepath.Join(s.deps.StatusDir, "status.json"))
			if err != nil {
				logger.Error("error creating status file", "error", err)
			} else {
				defer statusFile.Close()
			}
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				snap := s.Sample()

				logger.Debug("session status",
					"participants", snap.Participants,
					"pins", snap.Pins,
					"groups", snap.Groups,
					"shapes", snap.Shapes,
					"queueDepth", snap.QueueDepth,
				)

				if statusFile != nil {
					s.writeStatusFile(statusFile, snap)
				}

				if s.deps.Influx != nil {
					point := influx.SessionStatsPoint(
						snap.Session,
						snap.Participants, snap.Pins, snap.Groups, snap.Shapes,
						snap.QueueDepth,
					)
					if err := s.deps.Influx.WritePoint(context.Background(), influx.BucketSessionStats, point); err != nil {
						logger.Error("error writing status point", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

func (s *Service) writeStatusFile(f *os.File, snap Snapshot) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		s.deps.Logger.Error("error encoding status", "error", err)
		return
	}
	f.Truncate(0)
	f.Seek(0, 0)
	f.Write(append(data, '\n'))
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}

package server

import (
	"encoding/json"
	"log/slog"

	"gorm.io/datatypes"

	"github.com/tacmap/relay/internal/dispatcher"
	"github.com/tacmap/relay/internal/geo"
	"github.com/tacmap/relay/internal/model"
)

// archive hands an applied request to the tap dispatcher. Events are
// recorded after the apply loop accepted them, so the archive never holds
// requests that were dropped at the boundary.
func (s *Server) archive(ev dispatcher.Event) {
	if s.tap == nil {
		return
	}
	if _, err := s.tap.Dispatch(ev); err != nil {
		s.logger.Warn("archive queue full, dropping event", "type", ev.Type, "error", err)
	}
}

// recordEvent runs on the tap's buffered handlers and writes one record
// to the archive backend.
func (s *Server) recordEvent(ev dispatcher.Event) ([]dispatcher.Effect, error) {
	rec := model.SessionEvent{
		Origin:     ev.Origin,
		FromHost:   ev.IsHost,
		Type:       ev.Type,
		Payload:    datatypes.JSON(ev.Payload),
		RecordedAt: ev.Received,
	}

	// Events that carry coordinates get them projected for spatial queries.
	var pos struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	if err := json.Unmarshal(ev.Payload, &pos); err == nil && (pos.Lat != 0 || pos.Lon != 0) {
		rec.Lat = pos.Lat
		rec.Lon = pos.Lon
		if point, err := geo.Coord3857From4326(pos.Lon, pos.Lat); err == nil {
			rec.Position = point
		} else {
			s.logger.Warn("coordinate projection failed", "type", ev.Type, "error", err)
		}
	}

	return nil, s.store.RecordEvent(&rec)
}

// slogAdapter bridges *slog.Logger to the dispatcher's Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Debug(msg string, keysAndValues ...any) { a.l.Debug(msg, keysAndValues...) }
func (a slogAdapter) Info(msg string, keysAndValues ...any)  { a.l.Info(msg, keysAndValues...) }
func (a slogAdapter) Error(msg string, keysAndValues ...any) { a.l.Error(msg, keysAndValues...) }

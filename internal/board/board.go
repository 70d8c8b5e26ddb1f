// Package board holds the host's authoritative session state: the
// annotation store, the group registry, the shape registry, position
// markers, and the chat feed. All mutation happens through the Service;
// participants only ever see the results, never the stores.
package board

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tacmap/relay/internal/queue"
	"github.com/tacmap/relay/pkg/core"
)

// Service coordinates the host-private registries. Request handling is
// serialized by the caller; the mutex only protects concurrent reads from
// monitoring.
type Service struct {
	mu      sync.RWMutex
	pins    map[core.PinKey]*core.Pin
	groups  map[string]*group
	shapes  map[string]core.Shape
	order   []string // shape insertion order for stable snapshots
	markers map[string]core.Marker
	chat    *queue.Ring[core.ChatMessage]
	logger  *slog.Logger

	now func() time.Time
}

// New creates an empty board. chatHistory bounds the retained chat feed.
func New(logger *slog.Logger, chatHistory int) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		pins:    make(map[core.PinKey]*core.Pin),
		groups:  make(map[string]*group),
		shapes:  make(map[string]core.Shape),
		markers: make(map[string]core.Marker),
		chat:    queue.NewRing[core.ChatMessage](chatHistory),
		logger:  logger,
		now:     time.Now,
	}
}

// ClearAll empties the annotation store, the group registry, and the shape
// registry together. Markers and chat history survive a board clear.
func (s *Service) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pins = make(map[core.PinKey]*core.Pin)
	s.groups = make(map[string]*group)
	s.shapes = make(map[string]core.Shape)
	s.order = nil
	s.logger.Info("board cleared")
}

// AppendChat stamps and stores a chat message, returning the stored copy.
// Missing ids are assigned host-side so the feed stays addressable.
func (s *Service) AppendChat(msg core.ChatMessage) core.ChatMessage {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.ServerTimestamp = s.now()
	s.chat.Push(msg)
	return msg
}

// ChatHistory returns the retained chat feed, oldest first.
func (s *Service) ChatHistory() []core.ChatMessage {
	return s.chat.Items()
}

// PlaceMarker stores a participant's position marker, replacing any
// previous position.
func (s *Service) PlaceMarker(m core.Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[m.OwnerID] = m
}

// MarkerFor returns a participant's position marker.
func (s *Service) MarkerFor(ownerID string) (core.Marker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markers[ownerID]
	return m, ok
}

// Counts returns live pin, group, and shape totals for monitoring.
func (s *Service) Counts() (pins, groups, shapes int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pins), len(s.groups), len(s.shapes)
}

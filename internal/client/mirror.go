// Package client holds the participant side of a session: a connection
// that speaks the envelope protocol and a mirror that replays host
// broadcasts into local state. The mirror never mutates on its own; it
// converges to whatever the host last announced.
package client

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/tacmap/relay/internal/geo"
	"github.com/tacmap/relay/pkg/core"
	"github.com/tacmap/relay/pkg/streaming"
)

// Mirror is a participant's local copy of session state. A non-host
// mirror holds only its own pins plus the global shapes, chat, and roster;
// the host mirror holds every pin.
type Mirror struct {
	mu sync.RWMutex

	selfID      string
	isHost      bool
	sessionName string

	pins    map[core.PinKey]core.Pin
	shapes  map[string]core.Shape
	order   []string
	chat    []core.ChatMessage
	roster  []core.Participant
	markers map[string]core.Marker

	// selected filters the host's pin view to one participant. Pure
	// presentation; nothing upstream ever sees it.
	selected string

	logger *slog.Logger
}

// NewMirror creates an empty mirror.
func NewMirror(logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		pins:    make(map[core.PinKey]core.Pin),
		shapes:  make(map[string]core.Shape),
		markers: make(map[string]core.Marker),
		logger:  logger,
	}
}

// SelfID returns the server-assigned participant id.
func (m *Mirror) SelfID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selfID
}

// IsHost reports whether this mirror belongs to the session host.
func (m *Mirror) IsHost() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isHost
}

// SessionName returns the name announced in the welcome message.
func (m *Mirror) SessionName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionName
}

// Apply replays one host message into the mirror.
func (m *Mirror) Apply(env streaming.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch env.Type {
	case streaming.TypeWelcome:
		var p streaming.WelcomePayload
		if err := streaming.Decode(env, &p); err != nil {
			return err
		}
		m.selfID = p.ParticipantID
		m.isHost = p.IsHost
		m.sessionName = p.SessionName

	case streaming.TypePinSnapshot:
		var p streaming.PinSnapshotPayload
		if err := streaming.Decode(env, &p); err != nil {
			return err
		}
		m.pins = make(map[core.PinKey]core.Pin, len(p.Pins))
		for _, pin := range p.Pins {
			if m.visible(pin.OwnerID) {
				m.pins[pin.Key()] = pin
			}
		}

	case streaming.TypePinAdded,
		streaming.TypeRadiusUpdated,
		streaming.TypeElevationUpdated,
		streaming.TypeBearingUpdated:
		var pin core.Pin
		if err := streaming.Decode(env, &pin); err != nil {
			return err
		}
		if !m.visible(pin.OwnerID) {
			return nil
		}
		m.pins[pin.Key()] = pin

	case streaming.TypePinRemoved:
		var p streaming.PinRefPayload
		if err := streaming.Decode(env, &p); err != nil {
			return err
		}
		delete(m.pins, core.PinKey{OwnerID: p.OwnerID, PlacementID: p.PlacementID})

	case streaming.TypePinArchived:
		var p streaming.PinRefPayload
		if err := streaming.Decode(env, &p); err != nil {
			return err
		}
		key := core.PinKey{OwnerID: p.OwnerID, PlacementID: p.PlacementID}
		if pin, ok := m.pins[key]; ok {
			pin.Archived = true
			pin.RadiusMeters = 0
			m.pins[key] = pin
		}

	case streaming.TypeSubLabelAssigned:
		var p streaming.SubLabelPayload
		if err := streaming.Decode(env, &p); err != nil {
			return err
		}
		key := core.PinKey{OwnerID: p.OwnerID, PlacementID: p.PlacementID}
		if pin, ok := m.pins[key]; ok {
			pin.SubLabel = p.SubLabel
			m.pins[key] = pin
		}

	case streaming.TypeOwnerCleared:
		var p streaming.OwnerClearedPayload
		if err := streaming.Decode(env, &p); err != nil {
			return err
		}
		m.dropOwner(p.OwnerID)

	case streaming.TypeAllCleared:
		m.pins = make(map[core.PinKey]core.Pin)
		m.shapes = make(map[string]core.Shape)
		m.order = nil

	case streaming.TypeShapeSnapshot:
		var p streaming.ShapeSnapshotPayload
		if err := streaming.Decode(env, &p); err != nil {
			return err
		}
		m.shapes = make(map[string]core.Shape, len(p.Shapes))
		m.order = m.order[:0]
		for _, shape := range p.Shapes {
			m.shapes[shape.ID] = shape
			m.order = append(m.order, shape.ID)
		}

	case streaming.TypeShapeAdded:
		var shape core.Shape
		if err := streaming.Decode(env, &shape); err != nil {
			return err
		}
		if _, ok := m.shapes[shape.ID]; !ok {
			m.order = append(m.order, shape.ID)
		}
		m.shapes[shape.ID] = shape

	case streaming.TypeShapeUpdated:
		var shape core.Shape
		if err := streaming.Decode(env, &shape); err != nil {
			return err
		}
		if _, ok := m.shapes[shape.ID]; ok {
			m.shapes[shape.ID] = shape
		}

	case streaming.TypeShapeRemoved:
		var p streaming.RemoveShapePayload
		if err := streaming.Decode(env, &p); err != nil {
			return err
		}
		delete(m.shapes, p.ID)
		for i, id := range m.order {
			if id == p.ID {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}

	case streaming.TypeChatHistory:
		var p streaming.ChatHistoryPayload
		if err := streaming.Decode(env, &p); err != nil {
			return err
		}
		m.chat = append([]core.ChatMessage(nil), p.Messages...)

	case streaming.TypeChatPosted:
		var msg core.ChatMessage
		if err := streaming.Decode(env, &msg); err != nil {
			return err
		}
		m.chat = append(m.chat, msg)

	case streaming.TypeMarkerPlaced:
		var marker core.Marker
		if err := streaming.Decode(env, &marker); err != nil {
			return err
		}
		if m.isHost || marker.OwnerID == m.selfID {
			m.markers[marker.OwnerID] = marker
		}

	case streaming.TypeRosterChanged:
		var p streaming.RosterPayload
		if err := streaming.Decode(env, &p); err != nil {
			return err
		}
		m.roster = append([]core.Participant(nil), p.Participants...)

	case streaming.TypeDisconnected:
		var p streaming.DisconnectedPayload
		if err := streaming.Decode(env, &p); err != nil {
			return err
		}
		m.dropOwner(p.ParticipantID)

	default:
		return fmt.Errorf("unknown message type: %s", env.Type)
	}
	return nil
}

// visible reports whether pins of ownerID belong in this mirror. The host
// sees everything; a client only its own.
func (m *Mirror) visible(ownerID string) bool {
	return m.isHost || ownerID == m.selfID
}

// dropOwner removes an owner's pins and marker. Caller holds the lock.
func (m *Mirror) dropOwner(ownerID string) {
	for key := range m.pins {
		if key.OwnerID == ownerID {
			delete(m.pins, key)
		}
	}
	delete(m.markers, ownerID)
	if m.selected == ownerID {
		m.selected = ""
	}
}

// Pin returns one mirrored pin.
func (m *Mirror) Pin(key core.PinKey) (core.Pin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pin, ok := m.pins[key]
	return pin, ok
}

// Pins returns every mirrored pin.
func (m *Mirror) Pins() []core.Pin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.Pin, 0, len(m.pins))
	for _, pin := range m.pins {
		out = append(out, pin)
	}
	return out
}

// SelectParticipant narrows the host's pin view to one participant's pins.
// The empty string clears the filter.
func (m *Mirror) SelectParticipant(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected = id
}

// VisiblePins applies the host's display filter. Without a selection (and
// always on clients) it is the same as Pins.
func (m *Mirror) VisiblePins() []core.Pin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.Pin, 0, len(m.pins))
	for _, pin := range m.pins {
		if m.selected != "" && pin.OwnerID != m.selected {
			continue
		}
		out = append(out, pin)
	}
	return out
}

// Shapes returns the mirrored shape registry in the host's order.
func (m *Mirror) Shapes() []core.Shape {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.Shape, 0, len(m.order))
	for _, id := range m.order {
		if shape, ok := m.shapes[id]; ok {
			out = append(out, shape)
		}
	}
	return out
}

// Chat returns the mirrored chat feed, oldest first.
func (m *Mirror) Chat() []core.ChatMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]core.ChatMessage(nil), m.chat...)
}

// Roster returns the last broadcast participant roster.
func (m *Mirror) Roster() []core.Participant {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]core.Participant(nil), m.roster...)
}

// Marker returns a participant's mirrored position marker.
func (m *Mirror) Marker(ownerID string) (core.Marker, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	marker, ok := m.markers[ownerID]
	return marker, ok
}

// DistanceToPin returns the great-circle distance in meters from this
// participant's own marker to one of its pins.
func (m *Mirror) DistanceToPin(key core.PinKey) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	marker, ok := m.markers[m.selfID]
	if !ok {
		return 0, false
	}
	pin, ok := m.pins[key]
	if !ok {
		return 0, false
	}
	return geo.DistanceMeters(marker.Lat, marker.Lon, pin.Lat, pin.Lon), true
}

// BearingToPin returns the forward azimuth in degrees from this
// participant's own marker to one of its pins.
func (m *Mirror) BearingToPin(key core.PinKey) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	marker, ok := m.markers[m.selfID]
	if !ok {
		return 0, false
	}
	pin, ok := m.pins[key]
	if !ok {
		return 0, false
	}
	return geo.InitialBearing(marker.Lat, marker.Lon, pin.Lat, pin.Lon), true
}

package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tacmap/relay/pkg/core"
	"github.com/tacmap/relay/pkg/streaming"
)

func apply(t *testing.T, m *Mirror, msgType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, m.Apply(streaming.Envelope{Type: msgType, Payload: raw}))
}

func newClientMirror(t *testing.T, selfID string, isHost bool) *Mirror {
	t.Helper()
	m := NewMirror(nil)
	apply(t, m, streaming.TypeWelcome, streaming.WelcomePayload{
		ParticipantID: selfID,
		IsHost:        isHost,
		SessionName:   "s",
	})
	return m
}

func TestWelcomeSetsIdentity(t *testing.T) {
	m := newClientMirror(t, "c1", false)
	assert.Equal(t, "c1", m.SelfID())
	assert.False(t, m.IsHost())
	assert.Equal(t, "s", m.SessionName())
}

func TestClientMirrorVisibilityGuard(t *testing.T) {
	m := newClientMirror(t, "c1", false)

	apply(t, m, streaming.TypePinAdded, core.Pin{OwnerID: "c1", PlacementID: "p1", Lat: 1})
	apply(t, m, streaming.TypePinAdded, core.Pin{OwnerID: "c2", PlacementID: "p1", Lat: 2})

	pins := m.Pins()
	require.Len(t, pins, 1, "a client mirror never holds another client's pin")
	assert.Equal(t, "c1", pins[0].OwnerID)
}

func TestHostMirrorSeesAll(t *testing.T) {
	m := newClientMirror(t, "h1", true)

	apply(t, m, streaming.TypePinAdded, core.Pin{OwnerID: "c1", PlacementID: "p1"})
	apply(t, m, streaming.TypePinAdded, core.Pin{OwnerID: "c2", PlacementID: "p1"})

	assert.Len(t, m.Pins(), 2)
}

func TestMirrorConvergesOnUpdates(t *testing.T) {
	m := newClientMirror(t, "c1", false)
	key := core.PinKey{OwnerID: "c1", PlacementID: "p1"}

	apply(t, m, streaming.TypePinAdded, core.Pin{OwnerID: "c1", PlacementID: "p1", Lat: 1})
	apply(t, m, streaming.TypeRadiusUpdated, core.Pin{OwnerID: "c1", PlacementID: "p1", Lat: 1, RadiusMeters: 500})
	apply(t, m, streaming.TypeElevationUpdated, core.Pin{OwnerID: "c1", PlacementID: "p1", Lat: 1, RadiusMeters: 500, Elevation: 120})

	pin, ok := m.Pin(key)
	require.True(t, ok)
	assert.Equal(t, 500.0, pin.RadiusMeters)
	assert.Equal(t, 120.0, pin.Elevation)

	apply(t, m, streaming.TypePinRemoved, streaming.PinRefPayload{OwnerID: "c1", PlacementID: "p1"})
	_, ok = m.Pin(key)
	assert.False(t, ok)
}

func TestSubLabelRelabelsExistingPin(t *testing.T) {
	m := newClientMirror(t, "c1", false)

	apply(t, m, streaming.TypePinAdded, core.Pin{OwnerID: "c1", PlacementID: "p1", GroupID: "pin-9"})
	apply(t, m, streaming.TypeSubLabelAssigned, streaming.SubLabelPayload{
		OwnerID: "c1", PlacementID: "p1", SubLabel: "9.1",
	})

	pin, _ := m.Pin(core.PinKey{OwnerID: "c1", PlacementID: "p1"})
	assert.Equal(t, "9.1", pin.SubLabel)
}

func TestArchiveReleasesGeometry(t *testing.T) {
	m := newClientMirror(t, "c1", false)

	apply(t, m, streaming.TypePinAdded, core.Pin{OwnerID: "c1", PlacementID: "p1", RadiusMeters: 800, SubLabel: "9.1"})
	apply(t, m, streaming.TypePinArchived, streaming.PinRefPayload{OwnerID: "c1", PlacementID: "p1"})

	pin, ok := m.Pin(core.PinKey{OwnerID: "c1", PlacementID: "p1"})
	require.True(t, ok)
	assert.True(t, pin.Archived)
	assert.Zero(t, pin.RadiusMeters)
	assert.Equal(t, "9.1", pin.SubLabel, "archived pins keep their label")
}

func TestOwnerClearedAndAllCleared(t *testing.T) {
	m := newClientMirror(t, "h1", true)
	apply(t, m, streaming.TypePinAdded, core.Pin{OwnerID: "c1", PlacementID: "p1"})
	apply(t, m, streaming.TypePinAdded, core.Pin{OwnerID: "c2", PlacementID: "p1"})
	apply(t, m, streaming.TypeShapeAdded, core.Shape{ID: "s1", Type: core.ShapeBox})

	apply(t, m, streaming.TypeOwnerCleared, streaming.OwnerClearedPayload{OwnerID: "c1"})
	assert.Len(t, m.Pins(), 1)
	assert.Len(t, m.Shapes(), 1, "owner clear leaves shapes alone")

	apply(t, m, streaming.TypeAllCleared, struct{}{})
	assert.Empty(t, m.Pins())
	assert.Empty(t, m.Shapes())
}

func TestSnapshotsReplaceState(t *testing.T) {
	m := newClientMirror(t, "c1", false)
	apply(t, m, streaming.TypePinAdded, core.Pin{OwnerID: "c1", PlacementID: "stale"})

	apply(t, m, streaming.TypePinSnapshot, streaming.PinSnapshotPayload{
		Pins: []core.Pin{{OwnerID: "c1", PlacementID: "fresh"}},
	})
	pins := m.Pins()
	require.Len(t, pins, 1)
	assert.Equal(t, "fresh", pins[0].PlacementID)

	apply(t, m, streaming.TypeShapeSnapshot, streaming.ShapeSnapshotPayload{
		Shapes: []core.Shape{{ID: "a", Type: core.ShapeBox}, {ID: "b", Type: core.ShapeCircle}},
	})
	shapes := m.Shapes()
	require.Len(t, shapes, 2)
	assert.Equal(t, "a", shapes[0].ID)

	apply(t, m, streaming.TypeChatHistory, streaming.ChatHistoryPayload{
		Messages: []core.ChatMessage{{ID: "m1", Text: "hello"}},
	})
	apply(t, m, streaming.TypeChatPosted, core.ChatMessage{ID: "m2", Text: "again"})
	chat := m.Chat()
	require.Len(t, chat, 2)
	assert.Equal(t, "m2", chat[1].ID)
}

func TestHostSelectionFilterIsPresentationOnly(t *testing.T) {
	m := newClientMirror(t, "h1", true)
	apply(t, m, streaming.TypePinAdded, core.Pin{OwnerID: "c1", PlacementID: "p1"})
	apply(t, m, streaming.TypePinAdded, core.Pin{OwnerID: "c2", PlacementID: "p1"})

	m.SelectParticipant("c1")
	assert.Len(t, m.VisiblePins(), 1)
	assert.Len(t, m.Pins(), 2, "the filter never touches stored state")

	m.SelectParticipant("")
	assert.Len(t, m.VisiblePins(), 2)
}

func TestDisconnectedDropsOwner(t *testing.T) {
	m := newClientMirror(t, "h1", true)
	apply(t, m, streaming.TypePinAdded, core.Pin{OwnerID: "c1", PlacementID: "p1"})
	apply(t, m, streaming.TypeMarkerPlaced, core.Marker{OwnerID: "c1", Lat: 1, Lon: 1})
	m.SelectParticipant("c1")

	apply(t, m, streaming.TypeDisconnected, streaming.DisconnectedPayload{ParticipantID: "c1"})

	assert.Empty(t, m.Pins())
	_, ok := m.Marker("c1")
	assert.False(t, ok)
	assert.Len(t, m.VisiblePins(), 0)
}

func TestMarkerVisibility(t *testing.T) {
	m := newClientMirror(t, "c1", false)

	apply(t, m, streaming.TypeMarkerPlaced, core.Marker{OwnerID: "c1", Lat: 1, Lon: 1})
	apply(t, m, streaming.TypeMarkerPlaced, core.Marker{OwnerID: "c2", Lat: 2, Lon: 2})

	_, ok := m.Marker("c1")
	assert.True(t, ok)
	_, ok = m.Marker("c2")
	assert.False(t, ok, "a client mirror keeps only its own marker")
}

func TestDistanceAndBearingDerivation(t *testing.T) {
	m := newClientMirror(t, "c1", false)
	key := core.PinKey{OwnerID: "c1", PlacementID: "p1"}

	_, ok := m.DistanceToPin(key)
	assert.False(t, ok, "no marker yet")

	apply(t, m, streaming.TypeMarkerPlaced, core.Marker{OwnerID: "c1", Lat: 28.6139, Lon: 77.2090})
	apply(t, m, streaming.TypePinAdded, core.Pin{OwnerID: "c1", PlacementID: "p1", Lat: 19.0760, Lon: 72.8777})

	dist, ok := m.DistanceToPin(key)
	require.True(t, ok)
	assert.InDelta(t, 1153000, dist, 15000, "Delhi to Mumbai is about 1153 km")

	bearing, ok := m.BearingToPin(key)
	require.True(t, ok)
	assert.Greater(t, bearing, 180.0, "southwest heading")
	assert.Less(t, bearing, 270.0)
}

func TestUnknownTypeRejected(t *testing.T) {
	m := newClientMirror(t, "c1", false)
	err := m.Apply(streaming.Envelope{Type: "bogus", Payload: []byte(`{}`)})
	assert.Error(t, err)
}

func TestRosterMirrored(t *testing.T) {
	m := newClientMirror(t, "c1", false)
	apply(t, m, streaming.TypeRosterChanged, streaming.RosterPayload{
		Participants: []core.Participant{{ID: "h1", IsHost: true}, {ID: "c1"}},
	})
	roster := m.Roster()
	require.Len(t, roster, 2)
	assert.True(t, roster[0].IsHost)
}

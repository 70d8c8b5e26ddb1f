package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tacmap/relay/internal/client"
	"github.com/tacmap/relay/internal/dispatcher"
	"github.com/tacmap/relay/internal/router"
	"github.com/tacmap/relay/pkg/core"
	"github.com/tacmap/relay/pkg/streaming"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(Options{SessionName: "test", ChatHistory: 10})
	require.NoError(t, err)
	s.registry.Add(core.Participant{ID: "host", IsHost: true})
	s.registry.Add(core.Participant{ID: "c1"})
	s.registry.Add(core.Participant{ID: "c2"})
	return s
}

func event(t *testing.T, origin string, isHost bool, msgType string, payload any) dispatcher.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return dispatcher.Event{Origin: origin, IsHost: isHost, Type: msgType, Payload: raw}
}

func dispatch(t *testing.T, s *Server, ev dispatcher.Event) []dispatcher.Effect {
	t.Helper()
	effects, err := s.disp.Dispatch(ev)
	require.NoError(t, err)
	return effects
}

func TestPlacePinEffects(t *testing.T) {
	s := newTestServer(t)

	effects := dispatch(t, s, event(t, "c1", false, streaming.TypePlacePin,
		streaming.PlacePinPayload{PlacementID: "p1", Lat: 28.6, Lon: 77.2}))

	require.Len(t, effects, 1)
	assert.Equal(t, streaming.TypePinAdded, effects[0].Type)
	assert.Equal(t, router.KindHostAndOwner, effects[0].Scope.Kind)
	assert.Equal(t, "c1", effects[0].Scope.OwnerID)

	pin := effects[0].Payload.(core.Pin)
	assert.Equal(t, "c1", pin.OwnerID)
	assert.Equal(t, core.DefaultPinColor, pin.Color, "missing color falls back to default")
}

func TestPlacePinRetryIsSilent(t *testing.T) {
	s := newTestServer(t)
	ev := event(t, "c1", false, streaming.TypePlacePin,
		streaming.PlacePinPayload{PlacementID: "p1", Lat: 1, Lon: 1})

	dispatch(t, s, ev)
	effects := dispatch(t, s, ev)
	assert.Empty(t, effects, "retried placement produces no broadcast")
}

func TestPlaceGroupedPinEffects(t *testing.T) {
	s := newTestServer(t)

	effects := dispatch(t, s, event(t, "c1", false, streaming.TypePlacePin,
		streaming.PlacePinPayload{PlacementID: "p1", GroupID: "pin-101", Lat: 1, Lon: 1}))

	require.Len(t, effects, 2)
	assert.Equal(t, streaming.TypeSubLabelAssigned, effects[1].Type)
	assert.Equal(t, router.KindBroadcast, effects[1].Scope.Kind)
	label := effects[1].Payload.(streaming.SubLabelPayload)
	assert.Equal(t, "101.1", label.SubLabel)
}

func TestGroupOverflowEmitsArchiveEffect(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 5; i++ {
		dispatch(t, s, event(t, "c1", false, streaming.TypePlacePin,
			streaming.PlacePinPayload{PlacementID: string(rune('a' + i)), GroupID: "pin-7", Lat: 1, Lon: 1}))
	}
	effects := dispatch(t, s, event(t, "c1", false, streaming.TypePlacePin,
		streaming.PlacePinPayload{PlacementID: "f", GroupID: "pin-7", Lat: 1, Lon: 1}))

	require.Len(t, effects, 3)
	assert.Equal(t, streaming.TypePinArchived, effects[2].Type)
	ref := effects[2].Payload.(streaming.PinRefPayload)
	assert.Equal(t, "a", ref.PlacementID)
}

func TestRemovePinAuthorization(t *testing.T) {
	s := newTestServer(t)
	dispatch(t, s, event(t, "c1", false, streaming.TypePlacePin,
		streaming.PlacePinPayload{PlacementID: "p1", Lat: 1, Lon: 1}))

	// c2 claims c1's pin: dropped, no state change, no broadcast.
	_, err := s.disp.Dispatch(event(t, "c2", false, streaming.TypeRemovePin,
		streaming.RemovePinPayload{PlacementID: "p1", OwnerID: "c1"}))
	require.Error(t, err)
	assert.Len(t, s.board.PinsOwnedBy("c1"), 1)

	// The host acting for c1 is allowed.
	effects := dispatch(t, s, event(t, "host", true, streaming.TypeRemovePin,
		streaming.RemovePinPayload{PlacementID: "p1", OwnerID: "c1"}))
	require.Len(t, effects, 1)
	assert.Equal(t, streaming.TypePinRemoved, effects[0].Type)
	assert.Equal(t, "c1", effects[0].Scope.OwnerID)
	assert.Empty(t, s.board.PinsOwnedBy("c1"))
}

func TestGroupPurgeReachesHostMirror(t *testing.T) {
	s := newTestServer(t)
	hostView := client.NewMirror(nil)
	replay := func(effects []dispatcher.Effect) {
		for _, eff := range effects {
			raw, err := json.Marshal(eff.Payload)
			require.NoError(t, err)
			require.NoError(t, hostView.Apply(streaming.Envelope{Type: eff.Type, Payload: raw}))
		}
	}
	welcome, err := json.Marshal(streaming.WelcomePayload{ParticipantID: "host", IsHost: true, SessionName: "test"})
	require.NoError(t, err)
	require.NoError(t, hostView.Apply(streaming.Envelope{Type: streaming.TypeWelcome, Payload: welcome}))

	// Six members overflow the group and archive the first.
	for i := 0; i < 6; i++ {
		replay(dispatch(t, s, event(t, "c1", false, streaming.TypePlacePin,
			streaming.PlacePinPayload{PlacementID: string(rune('a' + i)), GroupID: "pin-9", Lat: 1, Lon: 1})))
	}

	// Removing the five live members kills the group. The archived member
	// is purged from the store, and the wire must say so too, or every
	// mirror holding it keeps it forever.
	for i := 1; i < 6; i++ {
		replay(dispatch(t, s, event(t, "c1", false, streaming.TypeRemovePin,
			streaming.RemovePinPayload{PlacementID: string(rune('a' + i))})))
	}

	assert.Empty(t, s.board.AllPins())
	assert.Empty(t, hostView.Pins(), "purged archive must not linger in a mirror")
}

func TestGroupPurgeEmitsRemovalPerArchivedPin(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 6; i++ {
		dispatch(t, s, event(t, "c1", false, streaming.TypePlacePin,
			streaming.PlacePinPayload{PlacementID: string(rune('a' + i)), GroupID: "pin-9", Lat: 1, Lon: 1}))
	}
	for i := 1; i < 5; i++ {
		dispatch(t, s, event(t, "c1", false, streaming.TypeRemovePin,
			streaming.RemovePinPayload{PlacementID: string(rune('a' + i))}))
	}

	effects := dispatch(t, s, event(t, "c1", false, streaming.TypeRemovePin,
		streaming.RemovePinPayload{PlacementID: "f"}))

	require.Len(t, effects, 2)
	assert.Equal(t, streaming.TypePinRemoved, effects[1].Type)
	ref := effects[1].Payload.(streaming.PinRefPayload)
	assert.Equal(t, "a", ref.PlacementID, "archived member is removed with its group")
	assert.Equal(t, router.KindHostAndOwner, effects[1].Scope.Kind)
	assert.Equal(t, "c1", effects[1].Scope.OwnerID)
}

func TestClearMinePurgesCrossOwnerArchive(t *testing.T) {
	s := newTestServer(t)

	// c2 holds the archived slot; c1's five live members keep the group up.
	dispatch(t, s, event(t, "c2", false, streaming.TypePlacePin,
		streaming.PlacePinPayload{PlacementID: "p0", GroupID: "pin-9", Lat: 1, Lon: 1}))
	for i := 1; i <= 5; i++ {
		dispatch(t, s, event(t, "c1", false, streaming.TypePlacePin,
			streaming.PlacePinPayload{PlacementID: string(rune('a' + i)), GroupID: "pin-9", Lat: 1, Lon: 1}))
	}

	effects := dispatch(t, s, event(t, "c1", false, streaming.TypeClearMine, struct{}{}))

	require.Len(t, effects, 2)
	assert.Equal(t, streaming.TypeOwnerCleared, effects[0].Type)
	assert.Equal(t, streaming.TypePinRemoved, effects[1].Type)
	ref := effects[1].Payload.(streaming.PinRefPayload)
	assert.Equal(t, "c2", ref.OwnerID, "c2 must hear its archived pin died with c1's group")
	assert.Equal(t, "p0", ref.PlacementID)
	assert.Equal(t, "c2", effects[1].Scope.OwnerID)
	assert.Empty(t, s.board.AllPins())
}

func TestRemoveUnknownPinIsSilent(t *testing.T) {
	s := newTestServer(t)
	effects := dispatch(t, s, event(t, "c1", false, streaming.TypeRemovePin,
		streaming.RemovePinPayload{PlacementID: "ghost"}))
	assert.Empty(t, effects)
}

func TestUpdateRadiusEffect(t *testing.T) {
	s := newTestServer(t)
	dispatch(t, s, event(t, "c1", false, streaming.TypePlacePin,
		streaming.PlacePinPayload{PlacementID: "p1", Lat: 1, Lon: 1}))

	effects := dispatch(t, s, event(t, "c1", false, streaming.TypeUpdateRadius,
		streaming.UpdateFieldPayload{PlacementID: "p1", Value: 2500}))

	require.Len(t, effects, 1)
	assert.Equal(t, streaming.TypeRadiusUpdated, effects[0].Type)
	pin := effects[0].Payload.(core.Pin)
	assert.Equal(t, 2500.0, pin.RadiusMeters)
}

func TestClearAllHostOnly(t *testing.T) {
	s := newTestServer(t)
	dispatch(t, s, event(t, "c1", false, streaming.TypePlacePin,
		streaming.PlacePinPayload{PlacementID: "p1", Lat: 1, Lon: 1}))

	_, err := s.disp.Dispatch(dispatcher.Event{Origin: "c1", Type: streaming.TypeClearAll})
	require.Error(t, err)
	assert.Len(t, s.board.AllPins(), 1)

	effects, err := s.disp.Dispatch(dispatcher.Event{Origin: "host", IsHost: true, Type: streaming.TypeClearAll})
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, streaming.TypeAllCleared, effects[0].Type)
	assert.Equal(t, router.KindBroadcast, effects[0].Scope.Kind)
	assert.Empty(t, s.board.AllPins())
}

func TestClearMine(t *testing.T) {
	s := newTestServer(t)
	dispatch(t, s, event(t, "c1", false, streaming.TypePlacePin,
		streaming.PlacePinPayload{PlacementID: "p1", Lat: 1, Lon: 1}))
	dispatch(t, s, event(t, "c2", false, streaming.TypePlacePin,
		streaming.PlacePinPayload{PlacementID: "p1", Lat: 1, Lon: 1}))

	effects, err := s.disp.Dispatch(dispatcher.Event{Origin: "c1", Type: streaming.TypeClearMine})
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, streaming.TypeOwnerCleared, effects[0].Type)
	assert.Equal(t, "c1", effects[0].Scope.OwnerID)

	assert.Empty(t, s.board.PinsOwnedBy("c1"))
	assert.Len(t, s.board.PinsOwnedBy("c2"), 1)
}

func TestShapeMutationHostOnly(t *testing.T) {
	s := newTestServer(t)

	_, err := s.disp.Dispatch(event(t, "c1", false, streaming.TypePlaceShape,
		streaming.ShapePayload{ID: "s1", Type: core.ShapeCircle, Lat: 1, Lon: 1}))
	require.Error(t, err)
	assert.Empty(t, s.board.Shapes())

	effects := dispatch(t, s, event(t, "host", true, streaming.TypePlaceShape,
		streaming.ShapePayload{ID: "s1", Type: core.ShapeCircle, Lat: 1, Lon: 1, RadiusMeters: 500}))
	require.Len(t, effects, 1)
	assert.Equal(t, streaming.TypeShapeAdded, effects[0].Type)
	assert.Equal(t, router.KindBroadcast, effects[0].Scope.Kind)
}

func TestMalformedPayloadRejected(t *testing.T) {
	s := newTestServer(t)

	_, err := s.disp.Dispatch(event(t, "c1", false, streaming.TypePlacePin,
		streaming.PlacePinPayload{Lat: 1, Lon: 1})) // missing placementId
	require.Error(t, err)
	assert.Empty(t, s.board.AllPins(), "malformed request must not touch the store")
}

func TestChatEffect(t *testing.T) {
	s := newTestServer(t)
	dispatch(t, s, event(t, "c1", false, streaming.TypeDeclareIdentity,
		streaming.DeclareIdentityPayload{DisplayName: "Arjun"}))

	effects := dispatch(t, s, event(t, "c1", false, streaming.TypeChatMessage,
		streaming.ChatMessagePayload{Text: "radio check"}))

	require.Len(t, effects, 1)
	assert.Equal(t, streaming.TypeChatPosted, effects[0].Type)
	msg := effects[0].Payload.(core.ChatMessage)
	assert.Equal(t, "Arjun", msg.SenderName)
	assert.False(t, msg.FromHost)
	assert.NotEmpty(t, msg.ID)
}

func TestDeclareIdentityColorFallback(t *testing.T) {
	s := newTestServer(t)

	effects := dispatch(t, s, event(t, "c1", false, streaming.TypeDeclareIdentity,
		streaming.DeclareIdentityPayload{DisplayName: "Arjun", PinColor: "red"}))

	require.Len(t, effects, 1)
	roster := effects[0].Payload.(streaming.RosterPayload)
	for _, p := range roster.Participants {
		if p.ID == "c1" {
			assert.Equal(t, core.DefaultPinColor, p.PinColor, "invalid color keeps the default")
		}
	}
}

func TestPlaceMarkerEffect(t *testing.T) {
	s := newTestServer(t)

	effects := dispatch(t, s, event(t, "c1", false, streaming.TypePlaceMarker,
		streaming.PlaceMarkerPayload{Lat: 28.6, Lon: 77.2}))

	require.Len(t, effects, 1)
	assert.Equal(t, streaming.TypeMarkerPlaced, effects[0].Type)
	assert.Equal(t, router.KindHostAndOwner, effects[0].Scope.Kind)
	m := effects[0].Payload.(core.Marker)
	assert.Equal(t, core.DefaultMarkerColor, m.Color)

	stored, ok := s.board.MarkerFor("c1")
	require.True(t, ok)
	assert.Equal(t, 28.6, stored.Lat)
}

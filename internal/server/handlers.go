package server

import (
	"github.com/tacmap/relay/internal/auth"
	"github.com/tacmap/relay/internal/dispatcher"
	"github.com/tacmap/relay/internal/router"
	"github.com/tacmap/relay/pkg/core"
	"github.com/tacmap/relay/pkg/streaming"
)

// registerHandlers binds every inbound event type to its handler. Each
// handler validates at the boundary, checks the authorization gate, mutates
// the registries, and returns the effects to fan out. A handler returning
// an error means the request was dropped without touching any store.
func (s *Server) registerHandlers() {
	s.disp.Register(streaming.TypeDeclareIdentity, s.handleDeclareIdentity)
	s.disp.Register(streaming.TypePlacePin, s.handlePlacePin, dispatcher.Logged())
	s.disp.Register(streaming.TypeRemovePin, s.handleRemovePin)
	s.disp.Register(streaming.TypeUpdateRadius, s.handleUpdateRadius)
	s.disp.Register(streaming.TypeUpdateElevation, s.handleUpdateElevation)
	s.disp.Register(streaming.TypeUpdateBearing, s.handleUpdateBearing)
	s.disp.Register(streaming.TypeClearMine, s.handleClearMine)
	s.disp.Register(streaming.TypeClearAll, s.handleClearAll)
	s.disp.Register(streaming.TypePlaceShape, s.handlePlaceShape)
	s.disp.Register(streaming.TypeUpdateShape, s.handleUpdateShape)
	s.disp.Register(streaming.TypeRemoveShape, s.handleRemoveShape)
	s.disp.Register(streaming.TypeChatMessage, s.handleChat)
	s.disp.Register(streaming.TypePlaceMarker, s.handlePlaceMarker)
}

func (s *Server) handleDeclareIdentity(ev dispatcher.Event) ([]dispatcher.Effect, error) {
	var p streaming.DeclareIdentityPayload
	if err := streaming.Decode(streaming.Envelope{Type: ev.Type, Payload: ev.Payload}, &p); err != nil {
		return nil, err
	}

	// Invalid colors fall back to the defaults rather than failing the
	// declaration.
	pinColor := p.PinColor
	if !streaming.ValidHexColor(pinColor) {
		pinColor = ""
	}
	markerColor := p.MarkerColor
	if !streaming.ValidHexColor(markerColor) {
		markerColor = ""
	}

	s.registry.Declare(ev.Origin, p.DisplayName, pinColor, markerColor)

	return []dispatcher.Effect{{
		Scope:   router.Broadcast(),
		Type:    streaming.TypeRosterChanged,
		Payload: streaming.RosterPayload{Participants: s.registry.List()},
	}}, nil
}

func (s *Server) handlePlacePin(ev dispatcher.Event) ([]dispatcher.Effect, error) {
	var p streaming.PlacePinPayload
	if err := streaming.Decode(streaming.Envelope{Type: ev.Type, Payload: ev.Payload}, &p); err != nil {
		return nil, err
	}

	color := p.Color
	if !streaming.ValidHexColor(color) {
		color = s.pinColorFor(ev.Origin)
	}

	res, ok := s.board.Place(core.Pin{
		OwnerID:     ev.Origin,
		PlacementID: p.PlacementID,
		Lat:         p.Lat,
		Lon:         p.Lon,
		Color:       color,
		Kind:        p.Kind,
		GroupID:     p.GroupID,
	})
	if !ok {
		// Duplicate placement id: an idempotent retry, nothing to announce.
		return nil, nil
	}

	effects := []dispatcher.Effect{{
		Scope:   router.HostAndOwner(ev.Origin),
		Type:    streaming.TypePinAdded,
		Payload: res.Pin,
	}}
	if res.SubLabel != "" {
		effects = append(effects, dispatcher.Effect{
			Scope: router.Broadcast(),
			Type:  streaming.TypeSubLabelAssigned,
			Payload: streaming.SubLabelPayload{
				OwnerID:     ev.Origin,
				PlacementID: p.PlacementID,
				SubLabel:    res.SubLabel,
			},
		})
	}
	if res.Archived != nil {
		effects = append(effects, dispatcher.Effect{
			Scope: router.HostAndOwner(res.Archived.OwnerID),
			Type:  streaming.TypePinArchived,
			Payload: streaming.PinRefPayload{
				OwnerID:     res.Archived.OwnerID,
				PlacementID: res.Archived.PlacementID,
			},
		})
	}
	return effects, nil
}

func (s *Server) handleRemovePin(ev dispatcher.Event) ([]dispatcher.Effect, error) {
	var p streaming.RemovePinPayload
	if err := streaming.Decode(streaming.Envelope{Type: ev.Type, Payload: ev.Payload}, &p); err != nil {
		return nil, err
	}
	if err := auth.Authorize(ev.Origin, ev.IsHost, p.OwnerID); err != nil {
		return nil, err
	}
	owner := auth.ResolveOwner(ev.Origin, p.OwnerID)

	res, ok := s.board.Remove(core.PinKey{OwnerID: owner, PlacementID: p.PlacementID})
	if !ok {
		// Unknown key or archived member: delete wins races, so no-op.
		return nil, nil
	}

	effects := []dispatcher.Effect{{
		Scope:   router.HostAndOwner(owner),
		Type:    streaming.TypePinRemoved,
		Payload: streaming.PinRefPayload{OwnerID: res.Pin.OwnerID, PlacementID: res.Pin.PlacementID},
	}}
	// Group death purges its archived members from the store; every mirror
	// holding one must hear about it.
	for _, pin := range res.Purged {
		effects = append(effects, dispatcher.Effect{
			Scope:   router.HostAndOwner(pin.OwnerID),
			Type:    streaming.TypePinRemoved,
			Payload: streaming.PinRefPayload{OwnerID: pin.OwnerID, PlacementID: pin.PlacementID},
		})
	}
	return effects, nil
}

func (s *Server) handleUpdateRadius(ev dispatcher.Event) ([]dispatcher.Effect, error) {
	return s.handleFieldUpdate(ev, streaming.TypeRadiusUpdated,
		func(key core.PinKey, p streaming.UpdateFieldPayload) (core.Pin, bool) {
			color := p.Color
			if color != "" && !streaming.ValidHexColor(color) {
				color = ""
			}
			return s.board.UpdateRadius(key, p.Value, color)
		})
}

func (s *Server) handleUpdateElevation(ev dispatcher.Event) ([]dispatcher.Effect, error) {
	return s.handleFieldUpdate(ev, streaming.TypeElevationUpdated,
		func(key core.PinKey, p streaming.UpdateFieldPayload) (core.Pin, bool) {
			return s.board.UpdateElevation(key, p.Value)
		})
}

func (s *Server) handleUpdateBearing(ev dispatcher.Event) ([]dispatcher.Effect, error) {
	return s.handleFieldUpdate(ev, streaming.TypeBearingUpdated,
		func(key core.PinKey, p streaming.UpdateFieldPayload) (core.Pin, bool) {
			return s.board.UpdateBearing(key, p.Value)
		})
}

// handleFieldUpdate factors the shared shape of the three single-field pin
// updates: decode, gate, resolve the key, apply, announce the full pin.
func (s *Server) handleFieldUpdate(
	ev dispatcher.Event,
	effectType string,
	apply func(core.PinKey, streaming.UpdateFieldPayload) (core.Pin, bool),
) ([]dispatcher.Effect, error) {
	var p streaming.UpdateFieldPayload
	if err := streaming.Decode(streaming.Envelope{Type: ev.Type, Payload: ev.Payload}, &p); err != nil {
		return nil, err
	}
	if err := auth.Authorize(ev.Origin, ev.IsHost, p.OwnerID); err != nil {
		return nil, err
	}
	owner := auth.ResolveOwner(ev.Origin, p.OwnerID)

	pin, ok := apply(core.PinKey{OwnerID: owner, PlacementID: p.PlacementID}, p)
	if !ok {
		return nil, nil
	}

	return []dispatcher.Effect{{
		Scope:   router.HostAndOwner(owner),
		Type:    effectType,
		Payload: pin,
	}}, nil
}

func (s *Server) handleClearMine(ev dispatcher.Event) ([]dispatcher.Effect, error) {
	_, purged := s.board.ClearOwner(ev.Origin)
	effects := []dispatcher.Effect{{
		Scope:   router.HostAndOwner(ev.Origin),
		Type:    streaming.TypeOwnerCleared,
		Payload: streaming.OwnerClearedPayload{OwnerID: ev.Origin},
	}}
	for _, pin := range purged {
		effects = append(effects, dispatcher.Effect{
			Scope:   router.HostAndOwner(pin.OwnerID),
			Type:    streaming.TypePinRemoved,
			Payload: streaming.PinRefPayload{OwnerID: pin.OwnerID, PlacementID: pin.PlacementID},
		})
	}
	return effects, nil
}

func (s *Server) handleClearAll(ev dispatcher.Event) ([]dispatcher.Effect, error) {
	if !ev.IsHost {
		return nil, auth.ErrUnauthorized
	}
	s.board.ClearAll()
	return []dispatcher.Effect{{
		Scope: router.Broadcast(),
		Type:  streaming.TypeAllCleared,
	}}, nil
}

func (s *Server) handlePlaceShape(ev dispatcher.Event) ([]dispatcher.Effect, error) {
	shape, err := s.decodeShape(ev)
	if err != nil {
		return nil, err
	}
	if !s.board.AddShape(shape) {
		return nil, nil
	}
	return []dispatcher.Effect{{
		Scope:   router.Broadcast(),
		Type:    streaming.TypeShapeAdded,
		Payload: shape,
	}}, nil
}

func (s *Server) handleUpdateShape(ev dispatcher.Event) ([]dispatcher.Effect, error) {
	shape, err := s.decodeShape(ev)
	if err != nil {
		return nil, err
	}
	if !s.board.UpdateShape(shape) {
		return nil, nil
	}
	return []dispatcher.Effect{{
		Scope:   router.Broadcast(),
		Type:    streaming.TypeShapeUpdated,
		Payload: shape,
	}}, nil
}

func (s *Server) handleRemoveShape(ev dispatcher.Event) ([]dispatcher.Effect, error) {
	if !ev.IsHost {
		return nil, auth.ErrUnauthorized
	}
	var p streaming.RemoveShapePayload
	if err := streaming.Decode(streaming.Envelope{Type: ev.Type, Payload: ev.Payload}, &p); err != nil {
		return nil, err
	}
	if !s.board.RemoveShape(p.ID) {
		return nil, nil
	}
	return []dispatcher.Effect{{
		Scope:   router.Broadcast(),
		Type:    streaming.TypeShapeRemoved,
		Payload: streaming.RemoveShapePayload{ID: p.ID},
	}}, nil
}

// decodeShape validates a host-only shape request.
func (s *Server) decodeShape(ev dispatcher.Event) (core.Shape, error) {
	if !ev.IsHost {
		return core.Shape{}, auth.ErrUnauthorized
	}
	var p streaming.ShapePayload
	if err := streaming.Decode(streaming.Envelope{Type: ev.Type, Payload: ev.Payload}, &p); err != nil {
		return core.Shape{}, err
	}

	color := p.Color
	if !streaming.ValidHexColor(color) {
		color = core.DefaultPinColor
	}

	return core.Shape{
		ID:             p.ID,
		Type:           p.Type,
		Lat:            p.Lat,
		Lon:            p.Lon,
		RadiusMeters:   p.RadiusMeters,
		BearingDegrees: p.BearingDegrees,
		SpreadDegrees:  p.SpreadDegrees,
		Color:          color,
	}, nil
}

func (s *Server) handleChat(ev dispatcher.Event) ([]dispatcher.Effect, error) {
	var p streaming.ChatMessagePayload
	if err := streaming.Decode(streaming.Envelope{Type: ev.Type, Payload: ev.Payload}, &p); err != nil {
		return nil, err
	}

	senderName := ev.Origin
	if participant, ok := s.registry.Get(ev.Origin); ok && participant.DisplayName != "" {
		senderName = participant.DisplayName
	}

	stored := s.board.AppendChat(core.ChatMessage{
		ID:              p.ID,
		SenderID:        ev.Origin,
		SenderName:      senderName,
		Text:            p.Text,
		ClientTimestamp: p.ClientTimestamp,
		FromHost:        ev.IsHost,
	})

	return []dispatcher.Effect{{
		Scope:   router.Broadcast(),
		Type:    streaming.TypeChatPosted,
		Payload: stored,
	}}, nil
}

func (s *Server) handlePlaceMarker(ev dispatcher.Event) ([]dispatcher.Effect, error) {
	var p streaming.PlaceMarkerPayload
	if err := streaming.Decode(streaming.Envelope{Type: ev.Type, Payload: ev.Payload}, &p); err != nil {
		return nil, err
	}

	marker := core.Marker{
		OwnerID: ev.Origin,
		Lat:     p.Lat,
		Lon:     p.Lon,
		Color:   s.markerColorFor(ev.Origin),
	}
	s.board.PlaceMarker(marker)

	return []dispatcher.Effect{{
		Scope:   router.HostAndOwner(ev.Origin),
		Type:    streaming.TypeMarkerPlaced,
		Payload: marker,
	}}, nil
}

func (s *Server) pinColorFor(id string) string {
	if p, ok := s.registry.Get(id); ok && p.PinColor != "" {
		return p.PinColor
	}
	return core.DefaultPinColor
}

func (s *Server) markerColorFor(id string) string {
	if p, ok := s.registry.Get(id); ok && p.MarkerColor != "" {
		return p.MarkerColor
	}
	return core.DefaultMarkerColor
}

package board

import (
	"github.com/tacmap/relay/pkg/core"
)

// PlaceResult reports what a placement changed: the stored pin, the
// sub-label assigned when the pin joined a group, and the key of a group
// member archived by capacity overflow.
type PlaceResult struct {
	Pin      core.Pin
	SubLabel string
	Archived *core.PinKey
}

// Place durably accepts a pin. Placement ids are client-generated and
// owner-scoped; an existing (owner, placementId) key makes the call a
// no-op so retries are safe.
func (s *Service) Place(pin core.Pin) (PlaceResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pin.Key()
	if _, exists := s.pins[key]; exists {
		s.logger.Debug("duplicate placement ignored",
			"owner", key.OwnerID, "placement", key.PlacementID)
		return PlaceResult{}, false
	}

	if pin.Kind == "" {
		pin.Kind = core.PinKindNormal
	}
	stored := pin
	s.pins[key] = &stored

	res := PlaceResult{}
	if pin.GroupID != "" {
		label, evicted := s.attach(pin.GroupID, key)
		stored.SubLabel = label
		res.SubLabel = label
		if evicted != nil {
			s.archiveLocked(*evicted)
			res.Archived = evicted
		}
	}
	res.Pin = stored
	return res, true
}

// RemoveResult reports what a removal changed: the removed pin, and any
// archived group members purged because the removal emptied the group's
// live chain. Purged pins left the store too and need announcing.
type RemoveResult struct {
	Pin    core.Pin
	Purged []core.Pin
}

// Remove deletes a live pin and detaches it from its group. Archived pins
// are retained until their group goes away, so removing one is a no-op.
// Unknown keys are a no-op as well: a delete and an update can cross in
// flight, and delete wins.
func (s *Service) Remove(key core.PinKey) (RemoveResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pin, ok := s.pins[key]
	if !ok || pin.Archived {
		return RemoveResult{}, false
	}

	removed := *pin
	delete(s.pins, key)
	res := RemoveResult{Pin: removed}
	if removed.GroupID != "" {
		res.Purged = s.detach(removed.GroupID, key)
	}
	return res, true
}

// UpdateRadius sets a pin's radius circle. No-op on unknown keys.
func (s *Service) UpdateRadius(key core.PinKey, meters float64, color string) (core.Pin, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pin, ok := s.pins[key]
	if !ok {
		return core.Pin{}, false
	}
	pin.RadiusMeters = meters
	if color != "" {
		pin.Color = color
	}
	return *pin, true
}

// UpdateElevation sets a pin's elevation. No-op on unknown keys.
func (s *Service) UpdateElevation(key core.PinKey, elevation float64) (core.Pin, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pin, ok := s.pins[key]
	if !ok {
		return core.Pin{}, false
	}
	pin.Elevation = elevation
	return *pin, true
}

// UpdateBearing stores a client-computed bearing. The host never derives
// bearing itself; it stores and relays what it is told.
func (s *Service) UpdateBearing(key core.PinKey, degrees float64) (core.Pin, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pin, ok := s.pins[key]
	if !ok {
		return core.Pin{}, false
	}
	pin.BearingDegrees = degrees
	return *pin, true
}

// ClearOwner removes every pin owned by ownerID, archived ones included,
// along with the owner's position marker. Used on disconnect and on an
// explicit "clear mine". Returns the pins that were live when removed,
// plus other owners' archived pins purged by group deletions along the
// way; the caller announces the owner's own pins with a single
// owner-scoped effect, but cross-owner purges need their own removals.
func (s *Service) ClearOwner(ownerID string) (removed, purged []core.Pin) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, pin := range s.pins {
		if key.OwnerID != ownerID {
			continue
		}
		if !pin.Archived {
			removed = append(removed, *pin)
		}
		delete(s.pins, key)
		if pin.GroupID != "" {
			for _, p := range s.detach(pin.GroupID, key) {
				if p.OwnerID != ownerID {
					purged = append(purged, p)
				}
			}
		}
	}
	delete(s.markers, ownerID)
	return removed, purged
}

// Get returns a copy of the pin at key.
func (s *Service) Get(key core.PinKey) (core.Pin, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pin, ok := s.pins[key]
	if !ok {
		return core.Pin{}, false
	}
	return *pin, true
}

// PinsOwnedBy returns copies of all of one owner's pins, live before
// archived, for connection resync.
func (s *Service) PinsOwnedBy(ownerID string) []core.Pin {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var live, archived []core.Pin
	for key, pin := range s.pins {
		if key.OwnerID != ownerID {
			continue
		}
		if pin.Archived {
			archived = append(archived, *pin)
		} else {
			live = append(live, *pin)
		}
	}
	return append(live, archived...)
}

// AllPins returns copies of every pin in the store.
func (s *Service) AllPins() []core.Pin {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Pin, 0, len(s.pins))
	for _, pin := range s.pins {
		out = append(out, *pin)
	}
	return out
}

// archiveLocked flips a pin to archived and releases its live geometry.
// The record itself stays addressable for history lookups; the sub-label
// is never renumbered.
func (s *Service) archiveLocked(key core.PinKey) {
	pin, ok := s.pins[key]
	if !ok {
		return
	}
	pin.Archived = true
	pin.RadiusMeters = 0
}

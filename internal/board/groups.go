package board

import (
	"fmt"

	"github.com/tacmap/relay/pkg/core"
)

// visibleCapacity bounds the live members of a group. Attaching beyond it
// archives the oldest member.
const visibleCapacity = 5

// group is an ordered chain of pins sharing a user-visible id. Archived
// members keep their historical sub-label but no longer count against
// capacity.
type group struct {
	id        string
	labelBase string
	nextLabel int
	members   []core.PinKey
	archived  []core.PinKey
}

// labelBase extracts the numeric suffix of a group id: group "pin-101"
// yields labels "101.1", "101.2", ... Ids without a numeric suffix use the
// whole id as base.
func labelBase(groupID string) string {
	i := len(groupID)
	for i > 0 && groupID[i-1] >= '0' && groupID[i-1] <= '9' {
		i--
	}
	if i == len(groupID) {
		return groupID
	}
	return groupID[i:]
}

// attach appends a pin to the group's member chain, creating the group on
// first sight of its id, and assigns the pin's sub-label. When the chain
// overflows visibleCapacity the oldest member is evicted for archiving;
// its key is returned.
func (s *Service) attach(groupID string, key core.PinKey) (subLabel string, evicted *core.PinKey) {
	g, ok := s.groups[groupID]
	if !ok {
		g = &group{
			id:        groupID,
			labelBase: labelBase(groupID),
			nextLabel: 1,
		}
		s.groups[groupID] = g
	}

	subLabel = fmt.Sprintf("%s.%d", g.labelBase, g.nextLabel)
	g.nextLabel++

	g.members = append(g.members, key)
	if len(g.members) > visibleCapacity {
		oldest := g.members[0]
		g.members = g.members[1:]
		g.archived = append(g.archived, oldest)
		evicted = &oldest
	}
	return subLabel, evicted
}

// detach removes a pin from its group's live chain (or archived history).
// A group whose live chain empties is deleted entirely, archived history
// included; the archived pin records leave the annotation store with it
// and are returned so callers can announce each removal.
func (s *Service) detach(groupID string, key core.PinKey) (purged []core.Pin) {
	g, ok := s.groups[groupID]
	if !ok {
		return nil
	}

	for i, member := range g.members {
		if member == key {
			g.members = append(g.members[:i], g.members[i+1:]...)
			break
		}
	}
	for i, member := range g.archived {
		if member == key {
			g.archived = append(g.archived[:i], g.archived[i+1:]...)
			break
		}
	}

	if len(g.members) == 0 {
		for _, member := range g.archived {
			if pin, ok := s.pins[member]; ok {
				purged = append(purged, *pin)
				delete(s.pins, member)
			}
		}
		delete(s.groups, groupID)
	}
	return purged
}

// GroupMembers returns the live member keys of a group in chain order.
func (s *Service) GroupMembers(groupID string) []core.PinKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok {
		return nil
	}
	out := make([]core.PinKey, len(g.members))
	copy(out, g.members)
	return out
}

// GroupArchive returns the archived member keys of a group, oldest first.
func (s *Service) GroupArchive(groupID string) []core.PinKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok {
		return nil
	}
	out := make([]core.PinKey, len(g.archived))
	copy(out, g.archived)
	return out
}

// GroupIDs returns the ids of all live groups.
func (s *Service) GroupIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.groups))
	for id := range s.groups {
		out = append(out, id)
	}
	return out
}

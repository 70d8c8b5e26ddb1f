package board

import (
	"github.com/tacmap/relay/pkg/core"
)

// Shape mutation is restricted to the host at the channel boundary; the
// registry itself is plain CRUD with no grouping or archiving semantics.

// AddShape stores a new shape. An existing id makes the call a no-op so
// retried placements are safe.
func (s *Service) AddShape(shape core.Shape) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.shapes[shape.ID]; exists {
		return false
	}
	s.shapes[shape.ID] = shape
	s.order = append(s.order, shape.ID)
	return true
}

// UpdateShape replaces a shape's fields in place. No-op on unknown ids.
func (s *Service) UpdateShape(shape core.Shape) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.shapes[shape.ID]; !exists {
		return false
	}
	s.shapes[shape.ID] = shape
	return true
}

// RemoveShape deletes a shape. No-op on unknown ids.
func (s *Service) RemoveShape(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.shapes[id]; !exists {
		return false
	}
	delete(s.shapes, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Shapes returns all shapes in insertion order, for snapshots.
func (s *Service) Shapes() []core.Shape {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Shape, 0, len(s.order))
	for _, id := range s.order {
		if shape, ok := s.shapes[id]; ok {
			out = append(out, shape)
		}
	}
	return out
}

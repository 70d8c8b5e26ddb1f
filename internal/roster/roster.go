// Package roster tracks connected participants and resolves the current
// host for routing decisions.
package roster

import (
	"sync"

	"github.com/tacmap/relay/pkg/core"
)

// Registry is the host-side table of connected participants.
type Registry struct {
	mu           sync.RWMutex
	participants map[string]core.Participant
	order        []string // join order, for stable roster listings
	hostID       string
}

// NewRegistry creates an empty participant registry.
func NewRegistry() *Registry {
	return &Registry{
		participants: make(map[string]core.Participant),
	}
}

// Add registers a participant on connect. Adding a second host returns
// false and leaves the registry unchanged; zero or one participant holds
// the host flag for the lifetime of a session.
func (r *Registry) Add(p core.Participant) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.IsHost && r.hostID != "" && r.hostID != p.ID {
		return false
	}
	if _, exists := r.participants[p.ID]; !exists {
		r.order = append(r.order, p.ID)
	}
	if p.PinColor == "" {
		p.PinColor = core.DefaultPinColor
	}
	if p.MarkerColor == "" {
		p.MarkerColor = core.DefaultMarkerColor
	}
	r.participants[p.ID] = p
	if p.IsHost {
		r.hostID = p.ID
	}
	return true
}

// Declare updates a participant's display data. Unknown ids are ignored.
func (r *Registry) Declare(id, displayName, pinColor, markerColor string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if !ok {
		return
	}
	p.DisplayName = displayName
	if pinColor != "" {
		p.PinColor = pinColor
	}
	if markerColor != "" {
		p.MarkerColor = markerColor
	}
	r.participants[id] = p
}

// Get retrieves a participant by id.
func (r *Registry) Get(id string) (core.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[id]
	return p, ok
}

// Remove deletes a participant on disconnect.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.participants[id]; !ok {
		return
	}
	delete(r.participants, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.hostID == id {
		r.hostID = ""
	}
}

// HostID returns the current host's participant id, or "" when no host is
// connected.
func (r *Registry) HostID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hostID
}

// IsHost reports whether id currently holds the host flag.
func (r *Registry) IsHost(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hostID != "" && r.hostID == id
}

// List returns all participants in join order.
func (r *Registry) List() []core.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.Participant, 0, len(r.order))
	for _, id := range r.order {
		if p, ok := r.participants[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of connected participants.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

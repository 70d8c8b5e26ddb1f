// pkg/core/participant.go
package core

// DefaultPinColor is applied when a participant declares no pin color.
const DefaultPinColor = "#FF0000"

// DefaultMarkerColor is applied when a participant declares no marker color.
const DefaultMarkerColor = "#2196F3"

// Participant is a connected process, host or client. The ID is assigned by
// the channel layer on connect; exactly zero or one participant per session
// holds IsHost.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	PinColor    string `json:"pinColor"`
	MarkerColor string `json:"markerColor"`
	IsHost      bool   `json:"isHost"`
}

// Marker is a participant's own position dot on the map. One per
// participant; re-placement replaces the previous position.
type Marker struct {
	OwnerID string  `json:"ownerId"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Color   string  `json:"color"`
}

// pkg/core/pin.go
package core

// PinKind distinguishes ordinary pins from RF (radio frequency) pins.
type PinKind string

const (
	PinKindNormal PinKind = "normal"
	PinKindRF     PinKind = "rf"
)

// PinKey uniquely identifies a pin for its whole lifetime.
// PlacementID is owner-scoped: two owners may use the same placement id.
type PinKey struct {
	OwnerID     string `json:"ownerId"`
	PlacementID string `json:"placementId"`
}

// Pin represents one point annotation on the shared map.
// The owner never changes after creation.
type Pin struct {
	OwnerID        string  `json:"ownerId"`
	PlacementID    string  `json:"placementId"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	Color          string  `json:"color"`
	Kind           PinKind `json:"kind"`
	GroupID        string  `json:"groupId,omitempty"`
	SubLabel       string  `json:"subLabel,omitempty"`
	RadiusMeters   float64 `json:"radiusMeters,omitempty"`
	Elevation      float64 `json:"elevation"`
	BearingDegrees float64 `json:"bearingDegrees"`
	Archived       bool    `json:"archived"`
}

// Key returns the pin's identity.
func (p *Pin) Key() PinKey {
	return PinKey{OwnerID: p.OwnerID, PlacementID: p.PlacementID}
}

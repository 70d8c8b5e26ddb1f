// pkg/core/shape.go
package core

// ShapeType enumerates the host-drawn overlay geometries.
type ShapeType string

const (
	ShapeBox    ShapeType = "box"
	ShapeCircle ShapeType = "circle"
	ShapeCone   ShapeType = "cone"
)

// Shape is a host-owned overlay geometry, visible to every participant.
// BearingDegrees and SpreadDegrees are meaningful for cones only.
type Shape struct {
	ID             string    `json:"id"`
	Type           ShapeType `json:"type"`
	Lat            float64   `json:"lat"`
	Lon            float64   `json:"lon"`
	RadiusMeters   float64   `json:"radiusMeters"`
	BearingDegrees float64   `json:"bearingDegrees,omitempty"`
	SpreadDegrees  float64   `json:"spreadDegrees,omitempty"`
	Color          string    `json:"color"`
}

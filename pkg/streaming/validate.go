package streaming

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedPayload is returned when a payload fails boundary validation.
// Malformed requests are rejected before any store is touched.
var ErrMalformedPayload = errors.New("malformed payload")

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ValidHexColor reports whether color is a #RRGGBB hex string.
func ValidHexColor(color string) bool {
	return hexColorPattern.MatchString(color)
}

// Decode unmarshals the envelope payload into dst and validates it when dst
// implements Validate() error.
func Decode(env Envelope, dst any) error {
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, env.Type, err)
	}
	if v, ok := dst.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, env.Type, err)
		}
	}
	return nil
}

// Validate checks required identity fields. An empty display name is
// rejected; colors are optional and fall back to defaults when invalid.
func (p *DeclareIdentityPayload) Validate() error {
	if strings.TrimSpace(p.DisplayName) == "" {
		return errors.New("displayName is required")
	}
	return nil
}

func (p *PlacePinPayload) Validate() error {
	if p.PlacementID == "" {
		return errors.New("placementId is required")
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}

func (p *RemovePinPayload) Validate() error {
	if p.PlacementID == "" {
		return errors.New("placementId is required")
	}
	return nil
}

func (p *UpdateFieldPayload) Validate() error {
	if p.PlacementID == "" {
		return errors.New("placementId is required")
	}
	return nil
}

func (p *ShapePayload) Validate() error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	switch p.Type {
	case "box", "circle", "cone":
	default:
		return fmt.Errorf("unknown shape type %q", p.Type)
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}

func (p *RemoveShapePayload) Validate() error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	return nil
}

func (p *ChatMessagePayload) Validate() error {
	if strings.TrimSpace(p.Text) == "" {
		return errors.New("text is required")
	}
	return nil
}

func (p *PlaceMarkerPayload) Validate() error {
	if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}

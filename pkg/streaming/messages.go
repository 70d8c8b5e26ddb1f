package streaming

import (
	"encoding/json"
	"time"

	"github.com/tacmap/relay/pkg/core"
)

// Client-to-host message type constants.
const (
	TypeDeclareIdentity = "declareIdentity"
	TypePlacePin        = "placePin"
	TypeRemovePin       = "removePin"
	TypeUpdateRadius    = "updateRadius"
	TypeUpdateElevation = "updateElevation"
	TypeUpdateBearing   = "updateBearing"
	TypeClearMine       = "clearMine"
	TypeClearAll        = "clearAll"
	TypePlaceShape      = "placeShape"
	TypeUpdateShape     = "updateShape"
	TypeRemoveShape     = "removeShape"
	TypeChatMessage     = "chatMessage"
	TypePlaceMarker     = "placeMarker"
)

// Host-to-participant message type constants.
const (
	TypePinAdded         = "pinAdded"
	TypePinRemoved       = "pinRemoved"
	TypePinArchived      = "pinArchived"
	TypeRadiusUpdated    = "radiusUpdated"
	TypeElevationUpdated = "elevationUpdated"
	TypeBearingUpdated   = "bearingUpdated"
	TypeSubLabelAssigned = "subLabelAssigned"
	TypeOwnerCleared     = "ownerCleared"
	TypeAllCleared       = "allCleared"
	TypeShapeAdded       = "shapeAdded"
	TypeShapeUpdated     = "shapeUpdated"
	TypeShapeRemoved     = "shapeRemoved"
	TypeChatPosted       = "chatPosted"
	TypeMarkerPlaced     = "markerPlaced"
	TypeRosterChanged    = "participantRosterChanged"
	TypeDisconnected     = "participantDisconnected"
	TypeWelcome          = "welcome"
	TypeShapeSnapshot    = "shapeSnapshot"
	TypeChatHistory      = "chatHistory"
	TypePinSnapshot      = "pinSnapshot"
)

// Envelope wraps every message sent over the channel in either direction.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DeclareIdentityPayload carries a participant's declared display data.
type DeclareIdentityPayload struct {
	DisplayName string `json:"displayName"`
	PinColor    string `json:"pinColor"`
	MarkerColor string `json:"markerColor"`
}

// PlacePinPayload creates a pin. PlacementID is generated by the placing
// client and must be unique per owner; retries with the same id are safe.
type PlacePinPayload struct {
	PlacementID string       `json:"placementId"`
	GroupID     string       `json:"groupId,omitempty"`
	Lat         float64      `json:"lat"`
	Lon         float64      `json:"lon"`
	Color       string       `json:"color,omitempty"`
	Kind        core.PinKind `json:"kind,omitempty"`
}

// RemovePinPayload deletes a pin. OwnerID defaults to the requester; only
// the host may name another owner.
type RemovePinPayload struct {
	PlacementID string `json:"placementId"`
	OwnerID     string `json:"ownerId,omitempty"`
}

// UpdateFieldPayload carries a single numeric field update (radius,
// elevation, or bearing depending on the envelope type).
type UpdateFieldPayload struct {
	PlacementID string  `json:"placementId"`
	OwnerID     string  `json:"ownerId,omitempty"`
	Value       float64 `json:"value"`
	Color       string  `json:"color,omitempty"`
}

// ShapePayload carries the full shape for place and update requests.
type ShapePayload struct {
	ID             string         `json:"id"`
	Type           core.ShapeType `json:"type"`
	Lat            float64        `json:"lat"`
	Lon            float64        `json:"lon"`
	RadiusMeters   float64        `json:"radiusMeters"`
	BearingDegrees float64        `json:"bearingDegrees,omitempty"`
	SpreadDegrees  float64        `json:"spreadDegrees,omitempty"`
	Color          string         `json:"color,omitempty"`
}

// RemoveShapePayload deletes a shape by id.
type RemoveShapePayload struct {
	ID string `json:"id"`
}

// ChatMessagePayload posts a chat line. ID is optional; the host assigns
// one when absent.
type ChatMessagePayload struct {
	ID              string    `json:"id,omitempty"`
	Text            string    `json:"text"`
	ClientTimestamp time.Time `json:"clientTimestamp"`
}

// PlaceMarkerPayload places or moves the sender's position marker.
type PlaceMarkerPayload struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// SubLabelPayload broadcasts a host-assigned group sub-label so every
// mirror relabels its copy of the pin identically.
type SubLabelPayload struct {
	OwnerID     string `json:"ownerId"`
	PlacementID string `json:"placementId"`
	SubLabel    string `json:"subLabel"`
}

// PinRefPayload addresses a pin by its full key (removal, archival).
type PinRefPayload struct {
	OwnerID     string `json:"ownerId"`
	PlacementID string `json:"placementId"`
}

// OwnerClearedPayload announces that one owner's pins are gone.
type OwnerClearedPayload struct {
	OwnerID string `json:"ownerId"`
}

// WelcomePayload is the first message sent to a fresh connection.
type WelcomePayload struct {
	ParticipantID string `json:"participantId"`
	IsHost        bool   `json:"isHost"`
	SessionName   string `json:"sessionName"`
}

// ShapeSnapshotPayload replays the full shape registry on (re)connect.
type ShapeSnapshotPayload struct {
	Shapes []core.Shape `json:"shapes"`
}

// ChatHistoryPayload replays the bounded chat history on (re)connect.
type ChatHistoryPayload struct {
	Messages []core.ChatMessage `json:"messages"`
}

// PinSnapshotPayload replays pins on (re)connect: the connecting
// participant's own pins, or every pin when the connection is the host.
type PinSnapshotPayload struct {
	Pins []core.Pin `json:"pins"`
}

// RosterPayload carries the full participant roster.
type RosterPayload struct {
	Participants []core.Participant `json:"participants"`
}

// DisconnectedPayload announces a participant leaving.
type DisconnectedPayload struct {
	ParticipantID string `json:"participantId"`
}

// Marshal builds a JSON-encoded Envelope from a message type and payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

// Package router resolves which connections receive each host-emitted
// event. Pin lifecycle events stay between the host and the pin's owner;
// shapes, chat, roster changes, and sub-label assignments go to everyone.
package router

import "github.com/tacmap/relay/pkg/streaming"

// Kind classifies a delivery scope.
type Kind int

const (
	// KindBroadcast delivers to every connected participant.
	KindBroadcast Kind = iota
	// KindHostAndOwner delivers to the host connection and the owning
	// participant's connection only.
	KindHostAndOwner
	// KindTarget delivers to exactly one participant (resync traffic).
	KindTarget
	// KindNone delivers to nobody. Unrecognized event types resolve here
	// rather than leaking to the full session.
	KindNone
)

// Scope is a resolved delivery set.
type Scope struct {
	Kind    Kind
	OwnerID string // set for KindHostAndOwner
	Target  string // set for KindTarget
}

// Broadcast scopes an event to every participant.
func Broadcast() Scope { return Scope{Kind: KindBroadcast} }

// HostAndOwner scopes an event to the host plus one owner.
func HostAndOwner(ownerID string) Scope {
	return Scope{Kind: KindHostAndOwner, OwnerID: ownerID}
}

// Target scopes an event to a single participant.
func Target(participantID string) Scope {
	return Scope{Kind: KindTarget, Target: participantID}
}

// For resolves the delivery scope of a host-emitted event type. ownerID is
// the id of the participant the event concerns (pin owner, marker owner,
// cleared owner); it is ignored for broadcast classes.
func For(msgType, ownerID string) Scope {
	switch msgType {
	case streaming.TypePinAdded,
		streaming.TypePinRemoved,
		streaming.TypePinArchived,
		streaming.TypeRadiusUpdated,
		streaming.TypeElevationUpdated,
		streaming.TypeBearingUpdated,
		streaming.TypeMarkerPlaced,
		streaming.TypeOwnerCleared:
		return HostAndOwner(ownerID)

	case streaming.TypeAllCleared,
		streaming.TypeSubLabelAssigned,
		streaming.TypeShapeAdded,
		streaming.TypeShapeUpdated,
		streaming.TypeShapeRemoved,
		streaming.TypeChatPosted,
		streaming.TypeRosterChanged,
		streaming.TypeDisconnected:
		return Broadcast()

	case streaming.TypeWelcome,
		streaming.TypeShapeSnapshot,
		streaming.TypeChatHistory,
		streaming.TypePinSnapshot:
		return Target(ownerID)
	}
	return Scope{Kind: KindNone}
}

// Includes reports whether a participant is inside the scope. The host is
// inside every scope except a Target aimed at somebody else.
func (s Scope) Includes(participantID string, isHost bool) bool {
	switch s.Kind {
	case KindBroadcast:
		return true
	case KindHostAndOwner:
		return isHost || participantID == s.OwnerID
	case KindTarget:
		return participantID == s.Target
	default:
		return false
	}
}

// Package auth decides whether a mutation request may touch another
// participant's state.
package auth

import "errors"

// ErrUnauthorized is returned when a requester claims an owner it may not
// act for. Denials are logged host-side and dropped; they are never echoed
// back to the requester.
var ErrUnauthorized = errors.New("requester may not act for claimed owner")

// Authorize allows a request iff the requester is the host or is acting on
// its own state. The empty claimedOwnerID means "the requester itself".
func Authorize(requesterID string, requesterIsHost bool, claimedOwnerID string) error {
	if requesterIsHost {
		return nil
	}
	if claimedOwnerID == "" || claimedOwnerID == requesterID {
		return nil
	}
	return ErrUnauthorized
}

// ResolveOwner returns the effective owner of a request: the claimed owner
// when present, otherwise the requester.
func ResolveOwner(requesterID, claimedOwnerID string) string {
	if claimedOwnerID != "" {
		return claimedOwnerID
	}
	return requesterID
}

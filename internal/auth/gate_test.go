package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name         string
		requesterID  string
		isHost       bool
		claimedOwner string
		wantErr      bool
	}{
		{name: "own state", requesterID: "a", claimedOwner: "a"},
		{name: "implicit self", requesterID: "a", claimedOwner: ""},
		{name: "host acts for anyone", requesterID: "h", isHost: true, claimedOwner: "b"},
		{name: "host acts for itself", requesterID: "h", isHost: true, claimedOwner: ""},
		{name: "client claims another owner", requesterID: "a", claimedOwner: "b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.requesterID, tt.isHost, tt.claimedOwner)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnauthorized)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolveOwner(t *testing.T) {
	assert.Equal(t, "b", ResolveOwner("a", "b"))
	assert.Equal(t, "a", ResolveOwner("a", ""))
}

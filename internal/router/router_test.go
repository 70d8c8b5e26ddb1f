package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tacmap/relay/pkg/streaming"
)

func TestFor(t *testing.T) {
	tests := []struct {
		msgType string
		want    Kind
	}{
		{streaming.TypePinAdded, KindHostAndOwner},
		{streaming.TypePinRemoved, KindHostAndOwner},
		{streaming.TypePinArchived, KindHostAndOwner},
		{streaming.TypeRadiusUpdated, KindHostAndOwner},
		{streaming.TypeElevationUpdated, KindHostAndOwner},
		{streaming.TypeBearingUpdated, KindHostAndOwner},
		{streaming.TypeMarkerPlaced, KindHostAndOwner},
		{streaming.TypeOwnerCleared, KindHostAndOwner},
		{streaming.TypeAllCleared, KindBroadcast},
		{streaming.TypeSubLabelAssigned, KindBroadcast},
		{streaming.TypeShapeAdded, KindBroadcast},
		{streaming.TypeShapeUpdated, KindBroadcast},
		{streaming.TypeShapeRemoved, KindBroadcast},
		{streaming.TypeChatPosted, KindBroadcast},
		{streaming.TypeRosterChanged, KindBroadcast},
		{streaming.TypeDisconnected, KindBroadcast},
		{streaming.TypeWelcome, KindTarget},
		{streaming.TypeShapeSnapshot, KindTarget},
		{streaming.TypeChatHistory, KindTarget},
		{streaming.TypePinSnapshot, KindTarget},
		{"bogus", KindNone},
	}
	for _, tt := range tests {
		t.Run(tt.msgType, func(t *testing.T) {
			assert.Equal(t, tt.want, For(tt.msgType, "owner-1").Kind)
		})
	}
}

func TestIncludes(t *testing.T) {
	tests := []struct {
		name          string
		scope         Scope
		participantID string
		isHost        bool
		want          bool
	}{
		{"broadcast reaches client", Broadcast(), "c1", false, true},
		{"broadcast reaches host", Broadcast(), "h1", true, true},
		{"owner scope reaches owner", HostAndOwner("c1"), "c1", false, true},
		{"owner scope reaches host", HostAndOwner("c1"), "h1", true, true},
		{"owner scope excludes bystander", HostAndOwner("c1"), "c2", false, false},
		{"target reaches target", Target("c1"), "c1", false, true},
		{"target excludes host", Target("c1"), "h1", true, false},
		{"none reaches nobody", Scope{Kind: KindNone}, "h1", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scope.Includes(tt.participantID, tt.isHost))
		})
	}
}

package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tacmap/relay/pkg/core"
)

func TestAddAndGet(t *testing.T) {
	r := NewRegistry()
	ok := r.Add(core.Participant{ID: "a", DisplayName: "Alpha"})
	require.True(t, ok)

	p, found := r.Get("a")
	require.True(t, found)
	assert.Equal(t, "Alpha", p.DisplayName)
	assert.Equal(t, core.DefaultPinColor, p.PinColor)
	assert.Equal(t, core.DefaultMarkerColor, p.MarkerColor)
}

func TestSingleHost(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.Add(core.Participant{ID: "h", IsHost: true}))
	assert.Equal(t, "h", r.HostID())
	assert.True(t, r.IsHost("h"))

	// A second host is refused outright.
	assert.False(t, r.Add(core.Participant{ID: "h2", IsHost: true}))
	assert.Equal(t, "h", r.HostID())
	_, found := r.Get("h2")
	assert.False(t, found)
}

func TestHostSlotFreedOnRemove(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.Add(core.Participant{ID: "h", IsHost: true}))
	r.Remove("h")
	assert.Equal(t, "", r.HostID())

	// Slot is open again.
	assert.True(t, r.Add(core.Participant{ID: "h2", IsHost: true}))
	assert.Equal(t, "h2", r.HostID())
}

func TestDeclareUpdatesDisplayData(t *testing.T) {
	r := NewRegistry()
	r.Add(core.Participant{ID: "a"})

	r.Declare("a", "Bravo", "#00FF00", "")
	p, _ := r.Get("a")
	assert.Equal(t, "Bravo", p.DisplayName)
	assert.Equal(t, "#00FF00", p.PinColor)
	assert.Equal(t, core.DefaultMarkerColor, p.MarkerColor)

	// Unknown ids are a no-op.
	r.Declare("zzz", "Ghost", "", "")
	assert.Equal(t, 1, r.Len())
}

func TestListJoinOrder(t *testing.T) {
	r := NewRegistry()
	r.Add(core.Participant{ID: "a"})
	r.Add(core.Participant{ID: "b"})
	r.Add(core.Participant{ID: "c"})
	r.Remove("b")

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "c", list[1].ID)
}

func TestReAddKeepsOrder(t *testing.T) {
	r := NewRegistry()
	r.Add(core.Participant{ID: "a", DisplayName: "first"})
	r.Add(core.Participant{ID: "b"})
	r.Add(core.Participant{ID: "a", DisplayName: "again"})

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "again", list[0].DisplayName)
}

func TestIsHostNoHost(t *testing.T) {
	r := NewRegistry()
	r.Add(core.Participant{ID: "a"})
	assert.False(t, r.IsHost("a"))
	assert.False(t, r.IsHost(""))
}

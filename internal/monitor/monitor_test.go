package monitor

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeStats struct{}

func (fakeStats) Stats() (int, int, int, int, int) { return 3, 7, 2, 1, 0 }

func TestSample(t *testing.T) {
	s := NewService(Dependencies{
		Stats:       fakeStats{},
		Logger:      slog.Default(),
		SessionName: "ops",
	})

	snap := s.Sample()
	assert.Equal(t, "ops", snap.Session)
	assert.Equal(t, 3, snap.Participants)
	assert.Equal(t, 7, snap.Pins)
	assert.Equal(t, 2, snap.Groups)
	assert.Equal(t, 1, snap.Shapes)
	assert.False(t, snap.Time.IsZero())
}

func TestStartStopIdempotent(t *testing.T) {
	s := NewService(Dependencies{Stats: fakeStats{}, Logger: slog.Default()})
	assert.False(t, s.IsRunning())
	s.Stop()
	assert.False(t, s.IsRunning())
}

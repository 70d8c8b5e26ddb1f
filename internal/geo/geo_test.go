package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceMeters(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		tolerance              float64
	}{
		{
			name: "same point",
			lat1: 28.6139, lon1: 77.2090,
			lat2: 28.6139, lon2: 77.2090,
			want: 0, tolerance: 0.001,
		},
		{
			name: "delhi to mumbai",
			lat1: 28.6139, lon1: 77.2090,
			lat2: 19.0760, lon2: 72.8777,
			want: 1153000, tolerance: 5000,
		},
		{
			name: "one degree of latitude",
			lat1: 0, lon1: 0,
			lat2: 1, lon2: 0,
			want: 111195, tolerance: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.want, got, tt.tolerance)
		})
	}
}

func TestDistanceSymmetry(t *testing.T) {
	d1 := DistanceMeters(28.6, 77.2, 19.0, 72.8)
	d2 := DistanceMeters(19.0, 72.8, 28.6, 77.2)
	assert.InDelta(t, d1, d2, 0.0001)
}

func TestInitialBearing(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
	}{
		{name: "due north", lat1: 0, lon1: 0, lat2: 10, lon2: 0, want: 0},
		{name: "due east", lat1: 0, lon1: 0, lat2: 0, lon2: 10, want: 90},
		{name: "due south", lat1: 10, lon1: 0, lat2: 0, lon2: 0, want: 180},
		{name: "due west", lat1: 0, lon1: 10, lat2: 0, lon2: 0, want: 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InitialBearing(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.want, got, 0.01)
		})
	}
}

func TestInitialBearingRange(t *testing.T) {
	// Bearing is always normalized into [0, 360).
	b := InitialBearing(10, 10, 5, 5)
	assert.GreaterOrEqual(t, b, 0.0)
	assert.Less(t, b, 360.0)
}

func TestCoord3857From4326(t *testing.T) {
	// Null island projects to the web-mercator origin.
	p, err := Coord3857From4326(0, 0)
	require.NoError(t, err)
	xy, ok := p.XY()
	assert.True(t, ok)
	assert.InDelta(t, 0, xy.X, 0.001)
	assert.InDelta(t, 0, xy.Y, 0.001)
}

func TestWKB3857From4326(t *testing.T) {
	wkb, err := WKB3857From4326(77.2090, 28.6139)
	require.NoError(t, err)
	assert.NotEmpty(t, wkb)
}

package geo

import (
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Archived pin geometry is stored as 3857 so SQLite, which has no spatial
// awareness, can hold projected points in WKB without a transform on read.

// earthRadiusMeters is the mean earth radius used for spherical distance
// and bearing. It matches the value the map layer uses, so host- and
// client-derived figures agree.
const earthRadiusMeters = 6371000

// DistanceMeters returns the great-circle distance between two WGS84
// coordinates.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// InitialBearing returns the forward azimuth in degrees [0, 360) from the
// first coordinate to the second.
func InitialBearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	theta := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(theta+360, 360)
}

// Coord3857From4326 projects a WGS84 longitude/latitude into an EPSG:3857
// point for archive storage.
func Coord3857From4326(longitude, latitude float64) (geom.Point, error) {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	point, err := geom.NewPoint(geom.Coordinates{
		XY: geom.XY{X: x, Y: y},
	})
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXY), err
	}
	return point, nil
}

// WKB3857From4326 returns the EPSG:3857 projection of a WGS84 coordinate in
// well-known binary form.
func WKB3857From4326(longitude, latitude float64) ([]byte, error) {
	point, err := Coord3857From4326(longitude, latitude)
	if err != nil {
		return nil, err
	}
	return point.AsBinary(), nil
}

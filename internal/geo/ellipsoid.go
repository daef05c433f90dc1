package geo

import "github.com/tidwall/geodesic"

// Ellipsoidal implements Model with geodesics on the WGS84 ellipsoid. It is
// the default model of the route loader, the resampler and the simulation
// driver.
type Ellipsoidal struct{}

func (Ellipsoidal) Distance(a, b Point) float64 {
	var s12 float64
	geodesic.WGS84.Inverse(a.Lat, a.Lon, b.Lat, b.Lon, &s12, nil, nil)
	return s12
}

func (Ellipsoidal) InitialBearing(a, b Point) float64 {
	var azi1 float64
	geodesic.WGS84.Inverse(a.Lat, a.Lon, b.Lat, b.Lon, nil, &azi1, nil)
	return NormalizeDeg(azi1)
}

func (Ellipsoidal) Destination(p Point, bearingDeg, meters float64) Point {
	var lat, lon float64
	geodesic.WGS84.Direct(p.Lat, p.Lon, bearingDeg, meters, &lat, &lon, nil)
	return Point{Lat: lat, Lon: lon}
}

// DefaultModel returns the model used when a caller leaves Model nil.
func DefaultModel() Model {
	return Ellipsoidal{}
}

// Package geo provides the small set of geodesy primitives the
// resampler, route loader and simulation driver need: distance, initial
// bearing, destination point and cross-track distance.
//
// The package-level functions work on a sphere of radius EarthRadiusM.
// Ellipsoidal follows WGS84 and is what callers get from DefaultModel.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusM is the mean earth radius used by the spherical model.
const EarthRadiusM = 6371000.0

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lon float64 `yaml:"lon" json:"lon"`
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}

// Model is the geo-math interface consumed by the trajectory resampler.
type Model interface {
	// Distance returns the distance between a and b in meters.
	Distance(a, b Point) float64
	// InitialBearing returns the initial bearing from a to b in degrees [0, 360).
	InitialBearing(a, b Point) float64
	// Destination returns the point reached from p after meters along bearingDeg.
	Destination(p Point, bearingDeg, meters float64) Point
}

// Spherical implements Model on a sphere of radius EarthRadiusM.
type Spherical struct{}

func (Spherical) Distance(a, b Point) float64 { return Distance(a, b) }

func (Spherical) InitialBearing(a, b Point) float64 { return InitialBearing(a, b) }

func (Spherical) Destination(p Point, bearingDeg, meters float64) Point {
	return Destination(p, bearingDeg, meters)
}

// Distance calculates the haversine distance in meters.
func Distance(a, b Point) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusM * c
}

// InitialBearing calculates the bearing from a to b, normalized to [0, 360).
func InitialBearing(a, b Point) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLon := toRad(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return NormalizeDeg(toDeg(math.Atan2(y, x)))
}

// Destination returns the point at distance meters from p along bearingDeg.
// Longitude is normalized to [-180, 180].
func Destination(p Point, bearingDeg, meters float64) Point {
	lat := toRad(p.Lat)
	lon := toRad(p.Lon)
	brg := toRad(bearingDeg)
	ang := meters / EarthRadiusM

	newLat := math.Asin(math.Sin(lat)*math.Cos(ang) + math.Cos(lat)*math.Sin(ang)*math.Cos(brg))
	newLon := lon + math.Atan2(
		math.Sin(brg)*math.Sin(ang)*math.Cos(lat),
		math.Cos(ang)-math.Sin(lat)*math.Sin(newLat))

	out := Point{Lat: toDeg(newLat), Lon: toDeg(newLon)}
	for out.Lon > 180 {
		out.Lon -= 360
	}
	for out.Lon < -180 {
		out.Lon += 360
	}
	return out
}

// SegmentDistance returns the distance in meters from p to the great-circle
// segment a→b. Points whose projection falls outside the segment measure to
// the nearer endpoint.
func SegmentDistance(p, a, b Point) float64 {
	dAB := Distance(a, b)
	if dAB == 0 {
		return Distance(p, a)
	}
	dAP := Distance(a, p)
	ang13 := dAP / EarthRadiusM
	theta13 := toRad(InitialBearing(a, p))
	theta12 := toRad(InitialBearing(a, b))

	xt := math.Asin(math.Sin(ang13) * math.Sin(theta13-theta12))
	at := math.Acos(clamp(math.Cos(ang13)/math.Cos(xt), -1, 1)) * EarthRadiusM
	if math.Cos(theta13-theta12) < 0 {
		// Behind a.
		return dAP
	}
	if at > dAB {
		return Distance(p, b)
	}
	return math.Abs(xt) * EarthRadiusM
}

// NormalizeDeg maps an angle to [0, 360).
func NormalizeDeg(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func toRad(d float64) float64 { return d * math.Pi / 180 }
func toDeg(r float64) float64 { return r * 180 / math.Pi }

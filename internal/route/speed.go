package route

// DefaultVehicleMaxSpeed caps every table entry, in km/h.
const DefaultVehicleMaxSpeed = 160.0

// SpeedTable maps a way type (e.g. "highway_primary") to a cruising speed in
// km/h.
type SpeedTable map[string]float64

// DefaultCarSpeeds returns the car profile used when no table is configured.
func DefaultCarSpeeds() SpeedTable {
	return SpeedTable{
		"highway_motorway":          110,
		"highway_motorway_trunk":    100,
		"highway_motorway_primary":  70,
		"highway_motorway_link":     60,
		"highway_motorway_junction": 60,
		"highway_trunk":             100,
		"highway_trunk_link":        60,
		"highway_primary":           70,
		"highway_primary_link":      60,
		"highway_secondary":         60,
		"highway_secondary_link":    50,
		"highway_tertiary_link":     55,
		"highway_tertiary":          55,
		"highway_unclassified":      50,
		"highway_road":              50,
		"highway_residential":       40,
		"highway_roundabout":        40,
		"highway_living_street":     10,
		"highway_service":           30,
	}
}

// Lookup returns the speed for wayType limited to maxSpeed (when > 0).
func (t SpeedTable) Lookup(wayType string, maxSpeed float64) (float64, bool) {
	v, ok := t[wayType]
	if !ok || v <= 0 {
		return 0, false
	}
	if maxSpeed > 0 && v > maxSpeed {
		v = maxSpeed
	}
	return v, true
}

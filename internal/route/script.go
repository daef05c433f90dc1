package route

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"navsim/internal/geo"
)

// Script is a planned route written by hand or exported from a router.
//
// YAML schema (v1):
//
//	version: 1
//	default_speed_kmh: 50
//	waypoints:
//	  - lat: 47.5927
//	    lon: 7.6559
//	    start: "Start"
//	    name: {name: "Hauptstrasse", ref: "B3"}
//	    way_type: highway_primary
//	  - lat: 47.5931
//	    lon: 7.6602
//	    turn: true
//	    direction: left
//	    crossing_ways:
//	      exit_count: 3
//	      names: [{name: "Bahnhofstrasse"}]
//	  - lat: 47.5950
//	    lon: 7.6610
//	    target: true
//
// distance_m and time are cumulative from the first waypoint. When omitted
// they are derived from the geometry and the segment speed.
type Script struct {
	Version         int              `yaml:"version"`
	DefaultSpeedKmh float64          `yaml:"default_speed_kmh"`
	Waypoints       []ScriptWaypoint `yaml:"waypoints"`
}

// ScriptWaypoint is one YAML waypoint. Pointer fields are optional.
type ScriptWaypoint struct {
	Lat       float64        `yaml:"lat"`
	Lon       float64        `yaml:"lon"`
	DistanceM *float64       `yaml:"distance_m"`
	Time      *time.Duration `yaml:"time"`

	WayType     string   `yaml:"way_type"`
	MaxSpeedKmh *float64 `yaml:"max_speed_kmh"`

	Start           *string                 `yaml:"start"`
	Target          bool                    `yaml:"target"`
	Turn            bool                    `yaml:"turn"`
	Direction       *Move                   `yaml:"direction"`
	Name            *Name                   `yaml:"name"`
	RoundaboutEnter bool                    `yaml:"roundabout_enter"`
	RoundaboutLeave *ScriptRoundaboutLeave  `yaml:"roundabout_leave"`
	MotorwayEnter   *ScriptMotorwayEnter    `yaml:"motorway_enter"`
	MotorwayChange  *ScriptMotorwayTransfer `yaml:"motorway_change"`
	MotorwayLeave   *ScriptMotorwayTransfer `yaml:"motorway_leave"`
	NameChanged     *ScriptNameChanged      `yaml:"name_changed"`
	CrossingWays    *ScriptCrossingWays     `yaml:"crossing_ways"`
	Junction        *Name                   `yaml:"motorway_junction"`
}

type ScriptRoundaboutLeave struct {
	ExitCount int `yaml:"exit_count"`
}

type ScriptMotorwayEnter struct {
	To *Name `yaml:"to"`
}

type ScriptMotorwayTransfer struct {
	From *Name `yaml:"from"`
	To   *Name `yaml:"to"`
}

type ScriptNameChanged struct {
	Origin *Name `yaml:"origin"`
	Target *Name `yaml:"target"`
}

type ScriptCrossingWays struct {
	ExitCount int    `yaml:"exit_count"`
	Origin    *Name  `yaml:"origin"`
	Target    *Name  `yaml:"target"`
	Names     []Name `yaml:"names"`
}

// BuildOptions controls how missing distances, times and limits are filled in.
type BuildOptions struct {
	// Model measures segment lengths. Nil means geo.DefaultModel.
	Model geo.Model
	// Speeds maps way_type to a limit. Nil means DefaultCarSpeeds.
	Speeds SpeedTable
	// DefaultSpeed is used when the script has no default_speed_kmh.
	DefaultSpeed float64
}

var ErrNoWaypoints = errors.New("waypoints is required")

// LoadScript reads and parses a YAML route script from path.
func LoadScript(path string) (Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	return ParseScriptYAML(b)
}

// ParseScriptYAML parses a YAML route script. Unknown fields are rejected so
// that typos in fact names do not silently drop maneuvers.
func ParseScriptYAML(b []byte) (Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return Script{}, ErrNoWaypoints
		}
		return Script{}, fmt.Errorf("parse route script: %w", err)
	}
	return s, nil
}

// Build validates the script and returns the waypoint sequence.
func (s Script) Build(opts BuildOptions) ([]Waypoint, error) {
	if s.Version == 0 {
		s.Version = 1
	}
	if s.Version != 1 {
		return nil, fmt.Errorf("unsupported route script version %d", s.Version)
	}
	if len(s.Waypoints) == 0 {
		return nil, ErrNoWaypoints
	}
	model := opts.Model
	if model == nil {
		model = geo.DefaultModel()
	}
	speeds := opts.Speeds
	if speeds == nil {
		speeds = DefaultCarSpeeds()
	}
	defaultSpeed := s.DefaultSpeedKmh
	if defaultSpeed <= 0 {
		defaultSpeed = opts.DefaultSpeed
	}
	if defaultSpeed < 0 {
		return nil, fmt.Errorf("default_speed_kmh must be >= 0")
	}

	out := make([]Waypoint, 0, len(s.Waypoints))
	for i, sw := range s.Waypoints {
		if sw.Lat < -90 || sw.Lat > 90 {
			return nil, fmt.Errorf("waypoints[%d].lat out of range", i)
		}
		if sw.Lon < -180 || sw.Lon > 180 {
			return nil, fmt.Errorf("waypoints[%d].lon out of range", i)
		}
		wp := Waypoint{Location: geo.Point{Lat: sw.Lat, Lon: sw.Lon}}
		facts, err := sw.facts(i, speeds, defaultSpeed)
		if err != nil {
			return nil, err
		}
		wp.Facts = facts

		if i > 0 {
			prev := out[i-1]
			seg := model.Distance(prev.Location, wp.Location)
			wp.Distance = prev.Distance + seg

			speed := defaultSpeed
			if prev.Facts.MaxSpeed != nil {
				speed = prev.Facts.MaxSpeed.Speed
			}
			if sw.Time == nil {
				if speed <= 0 {
					return nil, fmt.Errorf("waypoints[%d].time is required when no speed is known", i)
				}
				wp.Time = prev.Time + time.Duration(seg/1000.0/speed*float64(time.Hour))
			}
		}
		if sw.DistanceM != nil {
			wp.Distance = *sw.DistanceM
		}
		if sw.Time != nil {
			wp.Time = *sw.Time
		}
		if i > 0 {
			if wp.Distance < out[i-1].Distance {
				return nil, fmt.Errorf("waypoints[%d].distance_m must be non-decreasing", i)
			}
			if wp.Time < out[i-1].Time {
				return nil, fmt.Errorf("waypoints[%d].time must be non-decreasing", i)
			}
		}
		out = append(out, wp)
	}
	return out, nil
}

func (sw ScriptWaypoint) facts(i int, speeds SpeedTable, vehicleMax float64) (Facts, error) {
	var f Facts
	if sw.Start != nil {
		desc := *sw.Start
		if desc == "" {
			desc = "Start"
		}
		f.Start = &Start{Description: desc}
	}
	if sw.Target {
		f.Target = &Target{Description: "Target"}
	}
	if sw.Turn {
		f.Turn = &Turn{}
	}
	if sw.Direction != nil {
		f.Direction = &Direction{Turn: *sw.Direction, Curve: *sw.Direction}
	}
	if sw.Name != nil {
		n := *sw.Name
		f.Name = &n
	}
	if sw.RoundaboutEnter {
		f.RoundaboutEnter = &RoundaboutEnter{}
	}
	if sw.RoundaboutLeave != nil {
		if sw.RoundaboutLeave.ExitCount < 0 {
			return Facts{}, fmt.Errorf("waypoints[%d].roundabout_leave.exit_count must be >= 0", i)
		}
		f.RoundaboutLeave = &RoundaboutLeave{ExitCount: sw.RoundaboutLeave.ExitCount}
	}
	if sw.MotorwayEnter != nil {
		f.MotorwayEnter = &MotorwayEnter{To: sw.MotorwayEnter.To}
	}
	if sw.MotorwayChange != nil {
		f.MotorwayChange = &MotorwayChange{From: sw.MotorwayChange.From, To: sw.MotorwayChange.To}
	}
	if sw.MotorwayLeave != nil {
		f.MotorwayLeave = &MotorwayLeave{From: sw.MotorwayLeave.From}
	}
	if sw.NameChanged != nil {
		f.NameChanged = &NameChanged{Origin: sw.NameChanged.Origin, Target: sw.NameChanged.Target}
	}
	if sw.CrossingWays != nil {
		if sw.CrossingWays.ExitCount < 0 {
			return Facts{}, fmt.Errorf("waypoints[%d].crossing_ways.exit_count must be >= 0", i)
		}
		f.CrossingWays = &CrossingWays{
			ExitCount: sw.CrossingWays.ExitCount,
			Origin:    sw.CrossingWays.Origin,
			Target:    sw.CrossingWays.Target,
			Others:    sw.CrossingWays.Names,
		}
	}
	if sw.Junction != nil {
		f.MotorwayJunction = &MotorwayJunction{Junction: *sw.Junction}
	}

	switch {
	case sw.MaxSpeedKmh != nil:
		if *sw.MaxSpeedKmh <= 0 {
			return Facts{}, fmt.Errorf("waypoints[%d].max_speed_kmh must be > 0", i)
		}
		f.MaxSpeed = &MaxSpeed{Speed: *sw.MaxSpeedKmh}
	case sw.WayType != "":
		v, ok := speeds.Lookup(sw.WayType, vehicleMax)
		if !ok {
			return Facts{}, fmt.Errorf("waypoints[%d].way_type %q has no speed", i, sw.WayType)
		}
		f.MaxSpeed = &MaxSpeed{Speed: v}
	}
	return f, nil
}

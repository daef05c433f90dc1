// Package route models a planned route as an ordered list of waypoints, each
// annotated with optional maneuver facts.
package route

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"navsim/internal/geo"
)

// Kind tags one fact type. Facts are looked up by Kind rather than by
// inspecting their Go type.
type Kind int

const (
	KindStart Kind = iota
	KindTarget
	KindTurn
	KindRoundaboutEnter
	KindRoundaboutLeave
	KindMotorwayEnter
	KindMotorwayChange
	KindMotorwayLeave
	KindNameChanged
	KindCrossingWays
	KindDirection
	KindName
	KindMotorwayJunction
	KindMaxSpeed
)

var kindNames = [...]string{
	KindStart:            "start",
	KindTarget:           "target",
	KindTurn:             "turn",
	KindRoundaboutEnter:  "roundabout_enter",
	KindRoundaboutLeave:  "roundabout_leave",
	KindMotorwayEnter:    "motorway_enter",
	KindMotorwayChange:   "motorway_change",
	KindMotorwayLeave:    "motorway_leave",
	KindNameChanged:      "name_changed",
	KindCrossingWays:     "crossing_ways",
	KindDirection:        "direction",
	KindName:             "name",
	KindMotorwayJunction: "motorway_junction",
	KindMaxSpeed:         "max_speed",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// primaryOrder lists the maneuver kinds that can drive a description, in
// precedence order.
var primaryOrder = [...]Kind{
	KindStart,
	KindTarget,
	KindTurn,
	KindRoundaboutEnter,
	KindRoundaboutLeave,
	KindMotorwayEnter,
	KindMotorwayChange,
	KindMotorwayLeave,
	KindNameChanged,
}

// UnnamedRoad is the placeholder description of a way without name or ref.
const UnnamedRoad = "unnamed road"

// Name identifies a way by name and/or reference number.
type Name struct {
	Name string `yaml:"name"`
	Ref  string `yaml:"ref"`
}

func (n Name) HasName() bool {
	return n.Name != "" || n.Ref != ""
}

// Description renders "Name (Ref)", or whichever part is set.
func (n Name) Description() string {
	switch {
	case n.Name != "" && n.Ref != "":
		return n.Name + " (" + n.Ref + ")"
	case n.Name != "":
		return n.Name
	case n.Ref != "":
		return n.Ref
	default:
		return UnnamedRoad
	}
}

// Move is the curve of a turn.
type Move int

const (
	MoveSharpLeft Move = iota
	MoveLeft
	MoveSlightlyLeft
	MoveStraightOn
	MoveSlightlyRight
	MoveRight
	MoveSharpRight
)

var moveNames = [...]string{
	MoveSharpLeft:     "sharp_left",
	MoveLeft:          "left",
	MoveSlightlyLeft:  "slightly_left",
	MoveStraightOn:    "straight_on",
	MoveSlightlyRight: "slightly_right",
	MoveRight:         "right",
	MoveSharpRight:    "sharp_right",
}

func (m Move) String() string {
	if m < 0 || int(m) >= len(moveNames) {
		return fmt.Sprintf("move(%d)", int(m))
	}
	return moveNames[m]
}

// ParseMove accepts the snake_case names produced by Move.String.
func ParseMove(s string) (Move, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, name := range moveNames {
		if name == key {
			return Move(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// UnmarshalYAML lets scripts write `direction: left`.
func (m *Move) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := ParseMove(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

type Start struct {
	Description string
}

type Target struct {
	Description string
}

type Turn struct{}

type RoundaboutEnter struct{}

type RoundaboutLeave struct {
	ExitCount int
}

type MotorwayEnter struct {
	To *Name
}

type MotorwayChange struct {
	From *Name
	To   *Name
}

type MotorwayLeave struct {
	From *Name
}

type NameChanged struct {
	Origin *Name
	Target *Name
}

// CrossingWays describes the ways meeting at a node.
type CrossingWays struct {
	ExitCount int
	Origin    *Name
	Target    *Name
	Others    []Name
}

type Direction struct {
	Turn  Move
	Curve Move
}

type MotorwayJunction struct {
	Junction Name
}

// MaxSpeed is a speed limit in km/h for the segment leaving the waypoint.
type MaxSpeed struct {
	Speed float64
}

// Facts carries at most one value per Kind. A nil field means the fact is
// absent.
type Facts struct {
	Start            *Start
	Target           *Target
	Turn             *Turn
	RoundaboutEnter  *RoundaboutEnter
	RoundaboutLeave  *RoundaboutLeave
	MotorwayEnter    *MotorwayEnter
	MotorwayChange   *MotorwayChange
	MotorwayLeave    *MotorwayLeave
	NameChanged      *NameChanged
	CrossingWays     *CrossingWays
	Direction        *Direction
	Name             *Name
	MotorwayJunction *MotorwayJunction
	MaxSpeed         *MaxSpeed
}

// Has reports whether the fact tagged k is present.
func (f *Facts) Has(k Kind) bool {
	if f == nil {
		return false
	}
	switch k {
	case KindStart:
		return f.Start != nil
	case KindTarget:
		return f.Target != nil
	case KindTurn:
		return f.Turn != nil
	case KindRoundaboutEnter:
		return f.RoundaboutEnter != nil
	case KindRoundaboutLeave:
		return f.RoundaboutLeave != nil
	case KindMotorwayEnter:
		return f.MotorwayEnter != nil
	case KindMotorwayChange:
		return f.MotorwayChange != nil
	case KindMotorwayLeave:
		return f.MotorwayLeave != nil
	case KindNameChanged:
		return f.NameChanged != nil
	case KindCrossingWays:
		return f.CrossingWays != nil
	case KindDirection:
		return f.Direction != nil
	case KindName:
		return f.Name != nil
	case KindMotorwayJunction:
		return f.MotorwayJunction != nil
	case KindMaxSpeed:
		return f.MaxSpeed != nil
	}
	return false
}

// Primary returns the highest-precedence maneuver fact, if any.
func (f *Facts) Primary() (Kind, bool) {
	for _, k := range primaryOrder {
		if f.Has(k) {
			return k, true
		}
	}
	return 0, false
}

// Relevant reports whether the waypoint carries a maneuver worth narrating.
// Nodes without one are pure shape points.
func (f *Facts) Relevant() bool {
	_, ok := f.Primary()
	return ok
}

// Kinds lists the present facts in Kind order.
func (f *Facts) Kinds() []Kind {
	var out []Kind
	for k := KindStart; k <= KindMaxSpeed; k++ {
		if f.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// Waypoint is one node of a route.
type Waypoint struct {
	// Distance is the cumulative distance from the route start in meters.
	Distance float64
	// Time is the cumulative travel time from the route start.
	Time     time.Duration
	Location geo.Point
	Facts    Facts
}

// Points returns the waypoint locations in order.
func Points(wps []Waypoint) []geo.Point {
	out := make([]geo.Point, len(wps))
	for i := range wps {
		out[i] = wps[i].Location
	}
	return out
}

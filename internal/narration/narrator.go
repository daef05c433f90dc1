// Package narration walks a route and describes the next maneuver for a
// given travelled distance.
package narration

import (
	"time"

	"navsim/internal/geo"
	"navsim/internal/route"
)

// Renderer turns the primary fact of a waypoint into text. exit is the
// roundabout exit being taken and is only meaningful for
// route.KindRoundaboutLeave. An empty result means the waypoint has nothing
// worth saying.
type Renderer interface {
	Render(kind route.Kind, facts *route.Facts, exit int) string
}

// Description is the maneuver reported for one Advance call.
type Description struct {
	Instructions string
	// RoundaboutExitNumber is -1 unless the maneuver is a roundabout.
	RoundaboutExitNumber int
	Index                int
	Distance             float64 // meters from the route start
	Time                 time.Duration
	Location             geo.Point
}

// Narrator is a forward-only cursor over a route. It is not safe for
// concurrent use.
type Narrator struct {
	waypoints []route.Waypoint
	render    Renderer

	cursor     int
	roundabout int
	index      int
	previous   float64
	started    bool
	desc       Description
}

// New returns a narrator positioned at the first waypoint. A nil renderer
// means English.
func New(waypoints []route.Waypoint, r Renderer) *Narrator {
	if r == nil {
		r = English{}
	}
	n := &Narrator{waypoints: waypoints, render: r}
	n.Clear()
	return n
}

// Clear rewinds the narrator to the start of the route.
func (n *Narrator) Clear() {
	n.cursor = 0
	n.roundabout = 0
	n.index = 0
	n.previous = 0
	n.started = false
	n.desc = Description{RoundaboutExitNumber: -1}
}

// Description returns the last computed description.
func (n *Narrator) Description() Description {
	return n.desc
}

// Done reports whether every waypoint has been described.
func (n *Narrator) Done() bool {
	return n.cursor >= len(n.waypoints)
}

// Advance describes the next maneuver at or after travelled meters.
//
// Calls at or below the last reported distance, and calls after the route is
// exhausted, return the previous description unchanged.
func (n *Narrator) Advance(travelled float64) Description {
	if n.Done() || (n.started && travelled <= n.previous) {
		return n.desc
	}
	n.started = true

	for {
		n.desc.RoundaboutExitNumber = -1
		n.desc.Instructions = ""
		for {
			n.describe(&n.waypoints[n.cursor].Facts)
			// Shape points and roundabout interior nodes merge into the
			// next description.
			if n.desc.Instructions != "" && n.roundabout == 0 {
				break
			}
			if !n.step() {
				break
			}
		}
		n.desc.Index = n.index
		n.index++
		if travelled <= n.waypoints[n.cursor].Distance || !n.step() {
			break
		}
	}

	wp := n.waypoints[n.cursor]
	n.desc.Distance = wp.Distance
	n.desc.Time = wp.Time
	n.desc.Location = wp.Location
	n.previous = wp.Distance
	n.cursor++
	return n.desc
}

// step moves the cursor to the next waypoint unless it is on the last one.
func (n *Narrator) step() bool {
	if n.cursor+1 >= len(n.waypoints) {
		return false
	}
	n.cursor++
	return true
}

func (n *Narrator) describe(f *route.Facts) {
	if cw := f.CrossingWays; cw != nil && n.roundabout > 0 && cw.ExitCount > 1 &&
		f.RoundaboutEnter == nil && f.RoundaboutLeave == nil {
		n.roundabout += cw.ExitCount - 1
	}

	kind, ok := f.Primary()
	if !ok {
		return
	}
	switch kind {
	case route.KindRoundaboutEnter:
		n.desc.Instructions = n.render.Render(kind, f, 1)
		n.desc.RoundaboutExitNumber = 1
		n.roundabout = 1
	case route.KindRoundaboutLeave:
		exit := f.RoundaboutLeave.ExitCount
		if n.roundabout > 0 {
			exit = n.roundabout
		}
		n.desc.Instructions += n.render.Render(kind, f, exit)
		n.desc.RoundaboutExitNumber = exit
		n.roundabout = 0
	default:
		n.desc.Instructions = n.render.Render(kind, f, 0)
		n.desc.RoundaboutExitNumber = -1
	}
}

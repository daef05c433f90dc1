// Package sim drives a narrator and a route-state tracker along a resampled
// trajectory and reports what a navigation display would show.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"navsim/internal/geo"
	"navsim/internal/narration"
	"navsim/internal/replay"
	"navsim/internal/route"
	"navsim/internal/trajectory"
)

// RouteState is the vehicle's relation to the planned route.
type RouteState int

const (
	NoRoute RouteState = iota
	OnRoute
	OffRoute
)

func (s RouteState) String() string {
	switch s {
	case NoRoute:
		return "no route"
	case OnRoute:
		return "on route"
	case OffRoute:
		return "off route"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type EventKind int

const (
	EventRouteState EventKind = iota
	EventBearing
	EventInstruction
)

func (k EventKind) String() string {
	switch k {
	case EventRouteState:
		return "route_state"
	case EventBearing:
		return "bearing"
	case EventInstruction:
		return "instruction"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is emitted whenever something visible changes.
type Event struct {
	Kind      EventKind
	Time      time.Time
	Step      int
	Travelled float64 // meters along the trajectory

	State       RouteState
	Bearing     string
	Description narration.Description
}

// Summary describes a finished run.
type Summary struct {
	Steps         int
	Travelled     float64
	Elapsed       time.Duration
	Instructions  int
	OffRouteSteps int
}

// Driver replays a trajectory against a route. Route may be empty, in which
// case only bearing changes are reported.
type Driver struct {
	Route []route.Waypoint
	// Renderer formats instructions. Nil means narration.English.
	Renderer narration.Renderer
	// OffRouteM is the distance from the nearest route segment beyond which
	// the vehicle counts as off route.
	OffRouteM float64
	Model     geo.Model

	// Pace > 0 replays steps in real time divided by Pace.
	Pace    float64
	Sleeper replay.Sleeper
}

const defaultOffRouteM = 50

// Run processes steps in order and calls onEvent for every change. An error
// from onEvent or ctx stops the run.
func (d *Driver) Run(ctx context.Context, steps []trajectory.Step, onEvent func(Event) error) (Summary, error) {
	if len(steps) == 0 {
		return Summary{}, errors.New("sim: no steps")
	}
	if onEvent == nil {
		onEvent = func(Event) error { return nil }
	}
	model := d.Model
	if model == nil {
		model = geo.DefaultModel()
	}
	offRoute := d.OffRouteM
	if offRoute <= 0 {
		offRoute = defaultOffRouteM
	}

	st := &runState{
		driver:    d,
		model:     model,
		offRoute:  offRoute,
		narrator:  narration.New(d.Route, d.Renderer),
		routeLine: route.Points(d.Route),
		steps:     steps,
		lastIndex: -1,
		onEvent:   onEvent,
	}

	var err error
	if d.Pace > 0 {
		i := 0
		err = replay.Play(ctx, replay.Records(steps), d.Pace, false, d.Sleeper, func(replay.Record) error {
			perr := st.process(i)
			i++
			return perr
		})
	} else {
		for i := range steps {
			if err = ctx.Err(); err != nil {
				break
			}
			if err = st.process(i); err != nil {
				break
			}
		}
	}

	st.summary.Elapsed = trajectory.Elapsed(steps[:st.summary.Steps])
	return st.summary, err
}

type runState struct {
	driver    *Driver
	model     geo.Model
	offRoute  float64
	narrator  *narration.Narrator
	routeLine []geo.Point
	steps     []trajectory.Step
	onEvent   func(Event) error

	travelled float64
	state     RouteState
	bearing   string
	lastIndex int
	summary   Summary
}

func (s *runState) process(i int) error {
	step := s.steps[i]
	if i > 0 {
		prev := s.steps[i-1].Coord
		moved := s.model.Distance(prev, step.Coord)
		s.travelled += moved
		if moved > 0 {
			if b := CompassPoint(s.model.InitialBearing(prev, step.Coord)); b != s.bearing {
				s.bearing = b
				if err := s.emit(Event{Kind: EventBearing, Bearing: b}, i); err != nil {
					return err
				}
			}
		}
	}
	s.summary.Steps = i + 1
	s.summary.Travelled = s.travelled

	if state := s.routeState(step.Coord); state != s.state {
		s.state = state
		if err := s.emit(Event{Kind: EventRouteState, State: state}, i); err != nil {
			return err
		}
	}
	if s.state == OffRoute {
		s.summary.OffRouteSteps++
	}

	if len(s.driver.Route) == 0 {
		return nil
	}
	desc := s.narrator.Advance(s.travelled)
	if desc.Instructions != "" && desc.Index != s.lastIndex {
		s.lastIndex = desc.Index
		s.summary.Instructions++
		return s.emit(Event{Kind: EventInstruction, Description: desc}, i)
	}
	return nil
}

func (s *runState) routeState(p geo.Point) RouteState {
	switch len(s.routeLine) {
	case 0:
		return NoRoute
	case 1:
		if s.model.Distance(p, s.routeLine[0]) <= s.offRoute {
			return OnRoute
		}
		return OffRoute
	}
	best := math.Inf(1)
	for j := 0; j+1 < len(s.routeLine); j++ {
		if d := geo.SegmentDistance(p, s.routeLine[j], s.routeLine[j+1]); d < best {
			best = d
		}
	}
	if best <= s.offRoute {
		return OnRoute
	}
	return OffRoute
}

func (s *runState) emit(ev Event, i int) error {
	ev.Time = s.steps[i].Time
	ev.Step = i
	ev.Travelled = s.travelled

	entry := log.WithFields(log.Fields{
		"event":       ev.Kind.String(),
		"step":        i,
		"travelled_m": math.Round(ev.Travelled),
	})
	switch ev.Kind {
	case EventRouteState:
		entry.WithField("state", ev.State.String()).Info("route state changed")
	case EventBearing:
		entry.WithField("bearing", ev.Bearing).Debug("bearing changed")
	case EventInstruction:
		entry.WithFields(log.Fields{
			"index":    ev.Description.Index,
			"at_m":     math.Round(ev.Description.Distance),
			"exit":     ev.Description.RoundaboutExitNumber,
			"maneuver": ev.Description.Instructions,
		}).Info("next maneuver")
	}
	return s.onEvent(ev)
}

var compassPoints = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// CompassPoint names the eight-point compass direction nearest to deg.
func CompassPoint(deg float64) string {
	deg = geo.NormalizeDeg(deg)
	return compassPoints[int(math.Floor(deg/45.0+0.5))%len(compassPoints)]
}

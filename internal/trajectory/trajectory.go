// Package trajectory turns sparse waypoints or GPS fixes into a dense,
// time-stamped series of positions.
package trajectory

import (
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"navsim/internal/geo"
	"navsim/internal/gps"
	"navsim/internal/route"
)

var (
	ErrNoWaypoints  = errors.New("trajectory: no waypoints")
	ErrNoFixes      = errors.New("trajectory: no valid fixes")
	ErrInvalidSpeed = errors.New("trajectory: speed must be > 0")
)

// tickEpsilon absorbs floating point noise when deciding whether a segment
// still covers a whole tick.
const tickEpsilon = 1e-6

// Step is one output sample.
type Step struct {
	Time  time.Time
	Speed float64 // km/h
	Coord geo.Point
}

// Rounding selects how elapsed seconds between GPS fixes map to the
// one-second clock.
type Rounding int

const (
	// RoundTruncate drops the fractional second of every gap.
	RoundTruncate Rounding = iota
	// RoundNearest rounds every gap half away from zero.
	RoundNearest
	// RoundCarry accumulates fractional seconds so no time is lost.
	RoundCarry
)

func (r Rounding) String() string {
	switch r {
	case RoundTruncate:
		return "truncate"
	case RoundNearest:
		return "nearest"
	case RoundCarry:
		return "carry"
	}
	return fmt.Sprintf("rounding(%d)", int(r))
}

// ParseRounding accepts the names produced by Rounding.String.
func ParseRounding(s string) (Rounding, error) {
	switch s {
	case "", "truncate":
		return RoundTruncate, nil
	case "nearest":
		return RoundNearest, nil
	case "carry":
		return RoundCarry, nil
	}
	return 0, fmt.Errorf("unknown rounding %q", s)
}

type Options struct {
	// Model does the geodesy. Nil means geo.DefaultModel.
	Model geo.Model
	// DefaultSpeed in km/h for route segments without a limit.
	DefaultSpeed float64
	// Start is the time of the first step. Zero means time.Now().
	Start time.Time
	// Rounding applies to FromFixes only.
	Rounding Rounding
}

func (o Options) model() geo.Model {
	if o.Model == nil {
		return geo.DefaultModel()
	}
	return o.Model
}

func (o Options) start() time.Time {
	if o.Start.IsZero() {
		return time.Now()
	}
	return o.Start
}

// FromRoute walks the route segment by segment and emits one step per
// simulated second, plus a first step at the start and a last step at the
// terminal waypoint.
func FromRoute(wps []route.Waypoint, opts Options) ([]Step, error) {
	if len(wps) == 0 {
		return nil, ErrNoWaypoints
	}
	model := opts.model()
	t := opts.start()

	speed, err := segmentSpeed(wps[0], opts.DefaultSpeed, 0)
	if err != nil {
		return nil, err
	}
	steps := []Step{{Time: t, Speed: speed, Coord: wps[0].Location}}
	if len(wps) == 1 {
		return steps, nil
	}
	t = t.Add(time.Second)

	// restTime is the part of the current tick already spent on earlier
	// segments.
	restTime := 0.0
	for i := 0; i+1 < len(wps); i++ {
		cur, next := wps[i], wps[i+1]
		speed, err = segmentSpeed(cur, opts.DefaultSpeed, i)
		if err != nil {
			return nil, err
		}
		distKm := model.Distance(cur.Location, next.Location) / 1000.0
		bearing := model.InitialBearing(cur.Location, next.Location)
		remaining := distKm / speed * 3600.0

		// Restart from the waypoint so corners are not cut.
		pos := cur.Location
		for remaining > 1.0-restTime+tickEpsilon {
			tick := 1.0 - restTime
			remaining -= tick
			pos = model.Destination(pos, bearing, speed*tick/3600.0*1000.0)
			steps = append(steps, Step{Time: t, Speed: speed, Coord: pos})
			t = t.Add(time.Second)
			restTime = 0
		}
		restTime += remaining
	}
	steps = append(steps, Step{Time: t, Speed: speed, Coord: wps[len(wps)-1].Location})
	return steps, nil
}

func segmentSpeed(wp route.Waypoint, def float64, i int) (float64, error) {
	speed := def
	if wp.Facts.MaxSpeed != nil {
		speed = wp.Facts.MaxSpeed.Speed
	}
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return 0, fmt.Errorf("%w: segment %d has speed %v", ErrInvalidSpeed, i, speed)
	}
	return speed, nil
}

// FromFixes emits one step per usable fix. The first is stamped with the start
// time; each later one is advanced by the time needed to cover the distance
// from the previous emitted fix at the new fix's speed, rounded to whole
// seconds by opts.Rounding.
//
// A fix whose gap rounds to zero seconds is dropped so that step times stay
// strictly increasing; the distance it covered is folded into the next gap.
// The last usable fix is always emitted, at least one second after the
// previous step.
func FromFixes(fixes []gps.Fix, opts Options) ([]Step, error) {
	usable := make([]gps.Fix, 0, len(fixes))
	stationary := 0
	for i, f := range fixes {
		if !f.PositionValid || !f.SpeedValid {
			continue
		}
		if len(usable) > 0 && (f.Speed <= 0 || math.IsNaN(f.Speed)) {
			stationary++
			log.WithFields(log.Fields{"index": i, "speed_kmh": f.Speed}).Debug("trajectory: skipping stationary fix")
			continue
		}
		usable = append(usable, f)
	}
	if stationary > 0 {
		log.WithFields(log.Fields{"skipped": stationary, "usable": len(usable)}).
			Warn("trajectory: fixes without positive speed cannot be timed and were skipped")
	}
	if len(usable) == 0 {
		return nil, ErrNoFixes
	}

	model := opts.model()
	t := opts.start()
	steps := []Step{{Time: t, Speed: usable[0].Speed, Coord: usable[0].Position()}}
	prev := usable[0].Position()
	carry := 0.0

	for i := 1; i < len(usable); i++ {
		f := usable[i]
		distKm := model.Distance(prev, f.Position()) / 1000.0
		secs := distKm / f.Speed * 3600.0

		var whole float64
		switch opts.Rounding {
		case RoundNearest:
			whole = math.Round(secs)
		case RoundCarry:
			carry += secs
			whole = math.Floor(carry + tickEpsilon)
			carry = math.Max(carry-whole, 0)
		default:
			whole = math.Floor(secs)
		}

		last := i == len(usable)-1
		if whole < 1 {
			if !last {
				if opts.Rounding == RoundCarry {
					// The fraction is already banked in carry.
					prev = f.Position()
				}
				continue
			}
			whole = 1
		}
		t = t.Add(time.Duration(whole) * time.Second)
		steps = append(steps, Step{Time: t, Speed: f.Speed, Coord: f.Position()})
		prev = f.Position()
	}
	return steps, nil
}

// Elapsed returns the time between the first and last step.
func Elapsed(steps []Step) time.Duration {
	if len(steps) < 2 {
		return 0
	}
	return steps[len(steps)-1].Time.Sub(steps[0].Time)
}

// Length sums the distance between consecutive steps in meters.
func Length(steps []Step, model geo.Model) float64 {
	if model == nil {
		model = geo.DefaultModel()
	}
	total := 0.0
	for i := 1; i < len(steps); i++ {
		total += model.Distance(steps[i-1].Coord, steps[i].Coord)
	}
	return total
}

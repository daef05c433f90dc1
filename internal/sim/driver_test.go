package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navsim/internal/geo"
	"navsim/internal/route"
	"navsim/internal/trajectory"
)

var t0 = time.Date(2022, 1, 1, 12, 0, 0, 0, time.UTC)

// lRoute heads east for 500 m, turns left and heads north for 300 m.
func lRoute() []route.Waypoint {
	a := geo.Point{Lat: 47.5, Lon: 7.6}
	b := geo.Destination(a, 90, 500)
	c := geo.Destination(b, 0, 300)
	return []route.Waypoint{
		{Location: a, Facts: route.Facts{Start: &route.Start{Description: "Start"}, Name: &route.Name{Name: "Hauptstrasse"}}},
		{Location: b, Distance: 500, Facts: route.Facts{Turn: &route.Turn{}, Direction: &route.Direction{Curve: route.MoveLeft}, Name: &route.Name{Name: "Ring"}}},
		{Location: c, Distance: 800, Facts: route.Facts{Target: &route.Target{}}},
	}
}

func collect(events *[]Event) func(Event) error {
	return func(ev Event) error {
		*events = append(*events, ev)
		return nil
	}
}

func ofKind(events []Event, k EventKind) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Kind == k {
			out = append(out, ev)
		}
	}
	return out
}

func TestRun_OnRoute(t *testing.T) {
	wps := lRoute()
	steps, err := trajectory.FromRoute(wps, trajectory.Options{DefaultSpeed: 36, Start: t0})
	require.NoError(t, err)

	var events []Event
	sum, err := (&Driver{Route: wps}).Run(context.Background(), steps, collect(&events))
	require.NoError(t, err)

	instr := ofKind(events, EventInstruction)
	require.Len(t, instr, 3)
	assert.Equal(t, "Start, drive along 'Hauptstrasse'", instr[0].Description.Instructions)
	assert.Equal(t, 0, instr[0].Step)
	assert.Equal(t, "Turn left to 'Ring'", instr[1].Description.Instructions)
	assert.Equal(t, "Target reached", instr[2].Description.Instructions)
	assert.Greater(t, instr[2].Travelled, 500.0)

	states := ofKind(events, EventRouteState)
	require.Len(t, states, 1)
	assert.Equal(t, OnRoute, states[0].State)
	assert.Equal(t, t0, states[0].Time)

	bearings := ofKind(events, EventBearing)
	require.GreaterOrEqual(t, len(bearings), 2)
	assert.Equal(t, "E", bearings[0].Bearing)
	assert.Equal(t, "N", bearings[len(bearings)-1].Bearing)

	assert.Equal(t, len(steps), sum.Steps)
	assert.Equal(t, 3, sum.Instructions)
	assert.Zero(t, sum.OffRouteSteps)
	assert.InDelta(t, 800, sum.Travelled, 10)
	assert.Equal(t, trajectory.Elapsed(steps), sum.Elapsed)
}

func TestRun_OffRoute(t *testing.T) {
	wps := lRoute()
	// Drive a parallel road 200 m south and then rejoin at the target.
	south := geo.Destination(wps[0].Location, 180, 200)
	detour := []route.Waypoint{
		{Location: south},
		{Location: geo.Destination(south, 90, 500)},
		{Location: wps[2].Location},
	}
	steps, err := trajectory.FromRoute(detour, trajectory.Options{DefaultSpeed: 36, Start: t0})
	require.NoError(t, err)

	var events []Event
	sum, err := (&Driver{Route: wps, OffRouteM: 50}).Run(context.Background(), steps, collect(&events))
	require.NoError(t, err)

	states := ofKind(events, EventRouteState)
	require.GreaterOrEqual(t, len(states), 2)
	assert.Equal(t, OffRoute, states[0].State)
	assert.Equal(t, OnRoute, states[len(states)-1].State)
	assert.Greater(t, sum.OffRouteSteps, 0)
}

func TestRun_NoRoute(t *testing.T) {
	a := geo.Point{Lat: 10, Lon: 10}
	steps := []trajectory.Step{
		{Time: t0, Coord: a},
		{Time: t0.Add(time.Second), Coord: geo.Destination(a, 225, 10)},
	}
	var events []Event
	sum, err := (&Driver{}).Run(context.Background(), steps, collect(&events))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventBearing, events[0].Kind)
	assert.Equal(t, "SW", events[0].Bearing)
	assert.Zero(t, sum.Instructions)
}

type fakeSleeper struct {
	slept []time.Duration
}

func (fs *fakeSleeper) Sleep(d time.Duration) {
	fs.slept = append(fs.slept, d)
}

func TestRun_Paced(t *testing.T) {
	wps := lRoute()
	steps, err := trajectory.FromRoute(wps, trajectory.Options{DefaultSpeed: 36, Start: t0})
	require.NoError(t, err)

	fs := &fakeSleeper{}
	sum, err := (&Driver{Route: wps, Pace: 4, Sleeper: fs}).Run(context.Background(), steps, nil)
	require.NoError(t, err)
	assert.Equal(t, len(steps), sum.Steps)
	require.Len(t, fs.slept, len(steps)-1)
	var total time.Duration
	for _, d := range fs.slept {
		assert.LessOrEqual(t, d, 250*time.Millisecond)
		total += d
	}
	assert.Equal(t, 250*time.Millisecond, fs.slept[1])
	assert.InDelta(t, float64(trajectory.Elapsed(steps))/4, float64(total), float64(time.Millisecond))
}

func TestRun_StopsOnCancelAndCallbackError(t *testing.T) {
	wps := lRoute()
	steps, err := trajectory.FromRoute(wps, trajectory.Options{DefaultSpeed: 36, Start: t0})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = (&Driver{Route: wps}).Run(ctx, steps, nil)
	assert.ErrorIs(t, err, context.Canceled)

	boom := errors.New("boom")
	sum, err := (&Driver{Route: wps}).Run(context.Background(), steps, func(ev Event) error {
		if ev.Kind == EventInstruction && ev.Description.Index == 1 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Less(t, sum.Steps, len(steps))

	_, err = (&Driver{}).Run(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestCompassPoint(t *testing.T) {
	cases := map[float64]string{
		0:      "N",
		22.4:   "N",
		22.6:   "NE",
		90:     "E",
		180:    "S",
		269:    "W",
		337.6:  "N",
		-45:    "NW",
		359.99: "N",
	}
	for deg, want := range cases {
		assert.Equal(t, want, CompassPoint(deg), "deg=%v", deg)
	}
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "off route", OffRoute.String())
	assert.Equal(t, "instruction", EventInstruction.String())
}

package narration

import (
	"sort"
	"strconv"
	"strings"

	"navsim/internal/route"
)

// English renders maneuvers as short English instructions.
type English struct{}

var _ Renderer = English{}

func (English) Render(kind route.Kind, f *route.Facts, exit int) string {
	switch kind {
	case route.KindStart:
		return startText(f)
	case route.KindTarget:
		return "Target reached"
	case route.KindTurn:
		return turnText(f)
	case route.KindRoundaboutEnter:
		return "Enter in the roundabout, then "
	case route.KindRoundaboutLeave:
		return roundaboutLeaveText(f, exit)
	case route.KindMotorwayEnter:
		return motorwayEnterText(f)
	case route.KindMotorwayChange:
		return motorwayChangeText(f.MotorwayChange)
	case route.KindMotorwayLeave:
		return motorwayLeaveText(f)
	case route.KindNameChanged:
		return nameChangedText(f.NameChanged)
	}
	return ""
}

// MoveCommand returns the turn command for a direction.
func MoveCommand(m route.Move) string {
	switch m {
	case route.MoveSharpLeft:
		return "Turn sharp left"
	case route.MoveLeft:
		return "Turn left"
	case route.MoveSlightlyLeft:
		return "Turn slightly left"
	case route.MoveStraightOn:
		return "Straight on"
	case route.MoveSlightlyRight:
		return "Turn slightly right"
	case route.MoveRight:
		return "Turn right"
	case route.MoveSharpRight:
		return "Turn sharp right"
	}
	return "Turn"
}

// Ordinal spells exits one to four and falls back to "number N".
func Ordinal(n int) string {
	switch n {
	case 1:
		return "first"
	case 2:
		return "second"
	case 3:
		return "third"
	case 4:
		return "fourth"
	}
	return "number " + strconv.Itoa(n)
}

func named(n *route.Name) bool {
	return n != nil && n.HasName()
}

// usableName reports whether a description is worth reading out.
func usableName(s string) bool {
	return s != "" && s != route.UnnamedRoad
}

// crossingText lists the distinct names meeting at a crossing. A crossing
// with fewer than two names says nothing useful and renders as "".
func crossingText(cw *route.CrossingWays) string {
	if cw == nil {
		return ""
	}
	set := map[string]struct{}{}
	add := func(n *route.Name) {
		if n == nil {
			return
		}
		if s := n.Description(); usableName(s) {
			set[s] = struct{}{}
		}
	}
	add(cw.Origin)
	add(cw.Target)
	for i := range cw.Others {
		add(&cw.Others[i])
	}
	if len(set) < 2 {
		return ""
	}
	names := make([]string, 0, len(set))
	for s := range set {
		names = append(names, s)
	}
	sort.Strings(names)
	return "'" + strings.Join(names, "', '") + "'"
}

func startText(f *route.Facts) string {
	var b strings.Builder
	desc := f.Start.Description
	if desc == "" {
		desc = "Start"
	}
	b.WriteString(desc)
	if named(f.Name) {
		b.WriteString(", drive along '" + f.Name.Description() + "'")
	}
	return b.String()
}

func turnText(f *route.Facts) string {
	var b strings.Builder
	crossing := crossingText(f.CrossingWays)
	if crossing != "" {
		b.WriteString("At crossing " + crossing + "\n")
	}
	switch {
	case f.Direction != nil && crossing != "":
		b.WriteString(" " + MoveCommand(f.Direction.Curve))
	case f.Direction != nil:
		b.WriteString(MoveCommand(f.Direction.Curve))
	case crossing != "":
		b.WriteString(" turn")
	default:
		b.WriteString("Turn")
	}
	if named(f.Name) {
		b.WriteString(" to '" + f.Name.Description() + "'")
	}
	return b.String()
}

func roundaboutLeaveText(f *route.Facts, exit int) string {
	var b strings.Builder
	b.WriteString("take the " + Ordinal(exit) + " exit")
	if named(f.Name) {
		b.WriteString(", to '" + f.Name.Description() + "'")
	}
	return b.String()
}

func motorwayEnterText(f *route.Facts) string {
	if !named(f.MotorwayEnter.To) {
		return ""
	}
	var b strings.Builder
	crossing := crossingText(f.CrossingWays)
	if crossing != "" {
		b.WriteString("At the crossing " + crossing + "\n")
		b.WriteString(" enter the motorway")
	} else {
		b.WriteString("Enter the motorway")
	}
	b.WriteString(" '" + f.MotorwayEnter.To.Description() + "'")
	return b.String()
}

func motorwayChangeText(mc *route.MotorwayChange) string {
	from, to := named(mc.From), named(mc.To)
	if !from && !to {
		return ""
	}
	var b strings.Builder
	b.WriteString("Change motorway")
	if from {
		b.WriteString(" from '" + mc.From.Description() + "'")
	}
	if to {
		b.WriteString(" to '" + mc.To.Description() + "'")
	}
	return b.String()
}

func motorwayLeaveText(f *route.Facts) string {
	ml := f.MotorwayLeave
	exit := junctionText(f.MotorwayJunction)
	if !named(ml.From) && !named(f.Name) && exit == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("Leave the motorway")
	if named(ml.From) {
		b.WriteString(" '" + ml.From.Description() + "'")
	}
	if named(f.Name) {
		b.WriteString(" to '" + f.Name.Description() + "'")
	}
	b.WriteString(exit)
	return b.String()
}

func junctionText(j *route.MotorwayJunction) string {
	if j == nil {
		return ""
	}
	switch {
	case j.Junction.Name != "" && j.Junction.Ref != "":
		return " exit '" + j.Junction.Name + " (" + j.Junction.Ref + ")'"
	case j.Junction.Name != "":
		return " exit '" + j.Junction.Name + "'"
	case j.Junction.Ref != "":
		return " exit " + j.Junction.Ref
	}
	return ""
}

func nameChangedText(nc *route.NameChanged) string {
	if nc.Origin == nil || nc.Target == nil {
		return ""
	}
	origin, target := nc.Origin.Description(), nc.Target.Description()
	if !usableName(origin) || !usableName(target) {
		return ""
	}
	return "Way changes name from '" + origin + "' to '" + target + "'"
}

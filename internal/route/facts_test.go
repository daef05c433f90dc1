package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameDescription(t *testing.T) {
	tests := []struct {
		name string
		in   Name
		want string
		has  bool
	}{
		{name: "empty", in: Name{}, want: UnnamedRoad, has: false},
		{name: "name only", in: Name{Name: "Hauptstrasse"}, want: "Hauptstrasse", has: true},
		{name: "ref only", in: Name{Ref: "A5"}, want: "A5", has: true},
		{name: "both", in: Name{Name: "Autobahn", Ref: "A5"}, want: "Autobahn (A5)", has: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Description())
			assert.Equal(t, tt.has, tt.in.HasName())
		})
	}
}

func TestFactsHasAndPrimary(t *testing.T) {
	var f Facts
	assert.False(t, f.Relevant())
	_, ok := f.Primary()
	assert.False(t, ok)

	f.Name = &Name{Name: "Ring"}
	f.CrossingWays = &CrossingWays{ExitCount: 3}
	assert.True(t, f.Has(KindName))
	assert.True(t, f.Has(KindCrossingWays))
	assert.False(t, f.Relevant(), "decorating facts alone are not maneuvers")

	f.NameChanged = &NameChanged{}
	f.Turn = &Turn{}
	k, ok := f.Primary()
	require.True(t, ok)
	assert.Equal(t, KindTurn, k)

	f.Start = &Start{Description: "Start"}
	k, _ = f.Primary()
	assert.Equal(t, KindStart, k)

	assert.Equal(t, []Kind{KindStart, KindTurn, KindNameChanged, KindCrossingWays, KindName}, f.Kinds())

	var nilFacts *Facts
	assert.False(t, nilFacts.Has(KindStart))
}

func TestKindAndMoveStrings(t *testing.T) {
	assert.Equal(t, "roundabout_leave", KindRoundaboutLeave.String())
	assert.Equal(t, "kind(99)", Kind(99).String())

	for m := MoveSharpLeft; m <= MoveSharpRight; m++ {
		got, err := ParseMove(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMove("backwards")
	assert.Error(t, err)
}

func TestSpeedTableLookup(t *testing.T) {
	tbl := DefaultCarSpeeds()
	v, ok := tbl.Lookup("highway_motorway", DefaultVehicleMaxSpeed)
	require.True(t, ok)
	assert.Equal(t, 110.0, v)

	v, ok = tbl.Lookup("highway_motorway", 80)
	require.True(t, ok)
	assert.Equal(t, 80.0, v)

	_, ok = tbl.Lookup("footway", 0)
	assert.False(t, ok)
}

package gps

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nmeaLine(payload string) string {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return fmt.Sprintf("$%s*%02X", payload, ck)
}

// formatLatLon renders a coordinate in the fixed-width ddmm.mmmm /
// dddmm.mmmm form together with its hemisphere letter.
func formatLatLon(v float64, degWidth int, pos, neg string) (string, string) {
	hemi := pos
	if v < 0 {
		hemi = neg
		v = -v
	}
	deg := math.Floor(v)
	mins := (v - deg) * 60
	return fmt.Sprintf("%0*d%07.4f", degWidth, int(deg), mins), hemi
}

func TestDecode_RMCScenario(t *testing.T) {
	d := NewDecoder(ChecksumIgnore)
	fix, err := d.Decode("$GPRMC,191410,A,4735.5634,N,00739.3538,E,10.0,90.0,010122,,*00")
	require.NoError(t, err)

	assert.Equal(t, KindRMC, fix.Kind)
	assert.True(t, fix.PositionValid)
	assert.True(t, fix.SpeedValid)
	assert.True(t, fix.HeadingValid)
	assert.True(t, fix.TimestampValid)
	assert.True(t, fix.DateKnown)
	assert.InDelta(t, 47.592723, fix.Latitude, 1e-6)
	assert.InDelta(t, 7.655897, fix.Longitude, 1e-6)
	assert.InDelta(t, 18.52, fix.Speed, 1e-9)
	assert.InDelta(t, 90.0, fix.Heading, 1e-9)
	assert.Equal(t, time.Date(2022, 1, 1, 19, 14, 10, 0, time.UTC), fix.Timestamp)
}

func TestDecode_ChecksumVerify(t *testing.T) {
	d := NewDecoder(ChecksumVerify)
	_, err := d.Decode("$GPRMC,191410,A,4735.5634,N,00739.3538,E,10.0,90.0,010122,,*00")
	assert.ErrorIs(t, err, ErrChecksum)

	good := nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W")
	fix, err := d.Decode(good)
	require.NoError(t, err)
	assert.True(t, fix.PositionValid)

	_, err = d.Decode("$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W")
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestDecode_MatchesGoNMEA(t *testing.T) {
	lines := []string{
		nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W"),
		nmeaLine("GNRMC,083559.00,A,4717.11437,N,00833.91522,E,0.004,77.52,091202,,,A"),
		nmeaLine("GPRMC,225446,A,4916.45,S,12311.12,W,000.5,054.7,191194,020.3,E"),
	}
	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			s, err := nmea.Parse(line)
			require.NoError(t, err)
			want, ok := s.(nmea.RMC)
			require.True(t, ok)

			got, err := NewDecoder(ChecksumVerify).Decode(line)
			require.NoError(t, err)
			assert.InDelta(t, want.Latitude, got.Latitude, 1e-6)
			assert.InDelta(t, want.Longitude, got.Longitude, 1e-6)
			assert.InDelta(t, want.Speed*KmhPerKnot, got.Speed, 1e-9)
			assert.InDelta(t, want.Course, got.Heading, 1e-9)
		})
	}
}

func TestDecode_GGA(t *testing.T) {
	d := NewDecoder(ChecksumIgnore)

	fix, err := d.Decode("$GPGGA,191410,4735.5634,N,00739.3538,E,1,04,4.4,351.5,M,48.0,M,,*45")
	require.NoError(t, err)
	assert.Equal(t, KindGGA, fix.Kind)
	assert.True(t, fix.PositionValid)
	assert.True(t, fix.TimestampValid)
	assert.False(t, fix.SpeedValid)
	assert.False(t, fix.HeadingValid)
	assert.InDelta(t, 47.592723, fix.Latitude, 1e-6)

	fix, err = d.Decode("$GPGGA,191411,4735.5634,N,00739.3538,E,0,00,,,M,,M,,*45")
	require.NoError(t, err)
	assert.False(t, fix.PositionValid)
	assert.False(t, fix.TimestampValid)
	assert.False(t, fix.SpeedValid)
	assert.False(t, fix.HeadingValid)
}

func TestDecode_GLL(t *testing.T) {
	d := NewDecoder(ChecksumIgnore)
	fix, err := d.Decode("$GPGLL,5024.6102,N,00921.8833,E,183242.000,A,A*5B")
	require.NoError(t, err)
	assert.True(t, fix.PositionValid)
	assert.InDelta(t, 50.41017, fix.Latitude, 1e-5)
	assert.InDelta(t, 9.364722, fix.Longitude, 1e-5)
	assert.Equal(t, 18, fix.Timestamp.Hour())
	assert.Equal(t, 32, fix.Timestamp.Minute())
	assert.Equal(t, 42, fix.Timestamp.Second())

	fix, err = d.Decode("$GPGLL,5024.6102,N,00921.8833,E,183243.000,V,N*5B")
	require.NoError(t, err)
	assert.False(t, fix.PositionValid)
}

func TestDecode_DropoutClearsEverything(t *testing.T) {
	d := NewDecoder(ChecksumIgnore)
	_, err := d.Decode("$GPRMC,191410,A,4735.5634,N,00739.3538,E,10.0,90.0,010122,,*00")
	require.NoError(t, err)

	fix, err := d.Decode("$GPRMC,191411,V,,,,,,,010122,,*00")
	require.NoError(t, err)
	assert.False(t, fix.PositionValid)
	assert.False(t, fix.SpeedValid)
	assert.False(t, fix.HeadingValid)
	assert.False(t, fix.TimestampValid)
}

func TestDecode_SatelliteSentencesRecognized(t *testing.T) {
	d := NewDecoder(ChecksumIgnore)
	for _, line := range []string{
		"$GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1*39",
		"$GPGSV,2,1,08,01,40,083,46,02,17,308,41,12,07,344,39,14,22,228,45*75",
	} {
		fix, err := d.Decode(line)
		require.NoError(t, err, line)
		assert.False(t, fix.PositionValid)
		assert.False(t, fix.TimestampValid)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{name: "empty", line: "", want: ErrEmptySentence},
		{name: "blank", line: "   ", want: ErrEmptySentence},
		{name: "unknown", line: "$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*48", want: ErrUnknownSentence},
		{name: "short id", line: "$GP,1,2", want: ErrUnknownSentence},
		{name: "short gga", line: "$GPGGA,191410,4735.5634", want: ErrShortSentence},
		{name: "short rmc", line: "$GPRMC,191410,A,4735.5634", want: ErrShortSentence},
		{name: "short gll", line: "$GPGLL,5024.6102,N", want: ErrShortSentence},
		{name: "bad latitude", line: "$GPRMC,191410,A,47x5.5634,N,00739.3538,E,10.0,90.0,010122,,*00", want: ErrMalformedField},
		{name: "bad speed", line: "$GPRMC,191410,A,4735.5634,N,00739.3538,E,fast,90.0,010122,,*00", want: ErrMalformedField},
		{name: "bad quality", line: "$GPGGA,191410,4735.5634,N,00739.3538,E,x,04,4.4,351.5,M,48.0,M,,*45", want: ErrMalformedField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDecoder(ChecksumIgnore).Decode(tt.line)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecode_TimeAndDateCarryOver(t *testing.T) {
	d := NewDecoder(ChecksumIgnore)

	fix, err := d.Decode("$GPGGA,120000,4735.5634,N,00739.3538,E,1,04,4.4,351.5,M,48.0,M,,*45")
	require.NoError(t, err)
	assert.True(t, fix.TimestampValid)
	assert.False(t, fix.DateKnown)
	assert.Equal(t, 12, fix.Timestamp.Hour())

	fix, err = d.Decode("$GPRMC,120000,A,4735.5634,N,00739.3538,E,10.0,90.0,150622,,*00")
	require.NoError(t, err)
	assert.True(t, fix.DateKnown)
	assert.Equal(t, time.Date(2022, 6, 15, 12, 0, 0, 0, time.UTC), fix.Timestamp)

	fix, err = d.Decode("$GPGGA,120001.50,4735.5634,N,00739.3538,E,1,04,4.4,351.5,M,48.0,M,,*45")
	require.NoError(t, err)
	assert.True(t, fix.DateKnown)
	assert.Equal(t, time.Date(2022, 6, 15, 12, 0, 1, 0, time.UTC), fix.Timestamp)
}

func TestDecode_FailedLineKeepsState(t *testing.T) {
	d := NewDecoder(ChecksumIgnore)
	_, err := d.Decode("$GPRMC,120000,A,4735.5634,N,00739.3538,E,10.0,90.0,150622,,*00")
	require.NoError(t, err)

	// Bad latitude after a valid time and date: the whole line is rejected.
	_, err = d.Decode("$GPRMC,230000,A,47x5.5634,N,00739.3538,E,10.0,90.0,010199,,*00")
	require.ErrorIs(t, err, ErrMalformedField)

	fix, err := d.Decode("$GPGGA,120005,4735.5634,N,00739.3538,E,1,04,4.4,351.5,M,48.0,M,,*45")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 6, 15, 12, 0, 5, 0, time.UTC), fix.Timestamp)
}

func TestDecode_BadTimeIsNotFatal(t *testing.T) {
	d := NewDecoder(ChecksumIgnore)
	fix, err := d.Decode("$GPRMC,99xx10,A,4735.5634,N,00739.3538,E,10.0,90.0,,,*00")
	require.NoError(t, err)
	assert.True(t, fix.PositionValid)
	assert.False(t, fix.TimestampValid)

	fix, err = d.Decode("$GPRMC,191410,A,4735.5634,N,00739.3538,E,10.0,90.0,310222,,*00")
	require.NoError(t, err)
	assert.False(t, fix.DateKnown)
}

func TestDecode_CoordinateRoundTrip(t *testing.T) {
	points := [][2]float64{
		{47.592723, 7.655897},
		{-33.868820, 151.209296},
		{64.146582, -21.942635},
		{-0.5, -0.25},
		{0.000001, 179.999},
	}
	for _, p := range points {
		lat, ns := formatLatLon(p[0], 2, "N", "S")
		lon, ew := formatLatLon(p[1], 3, "E", "W")
		line := fmt.Sprintf("$GPGLL,%s,%s,%s,%s,101010,A,A", lat, ns, lon, ew)

		fix, err := NewDecoder(ChecksumIgnore).Decode(line)
		require.NoError(t, err, line)
		assert.InDelta(t, p[0], fix.Latitude, 1e-4, line)
		assert.InDelta(t, p[1], fix.Longitude, 1e-4, line)
	}
}

func decodeAll(d *Decoder, lines []string) ([]Fix, []error) {
	var fixes []Fix
	var errs []error
	for _, line := range lines {
		fix, err := d.Decode(line)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fixes = append(fixes, fix)
	}
	return fixes, errs
}

func TestDecode_Deterministic(t *testing.T) {
	carry := []string{
		"$GPGGA,191409,4735.5634,N,00739.3538,E,1,04,4.4,351.5,M,48.0,M,,*45",
		"$GPRMC,191410,A,4735.5634,N,00739.3538,E,10.0,90.0,010122,,*00",
		"$GPGGA,191411,4735.5700,N,00739.3538,E,1,04,4.4,351.5,M,48.0,M,,*45",
		"$GPGLL,4735.5800,N,00739.3538,E,191412.000,A,A*5B",
		"$GPRMC,235959,A,4735.5900,N,00739.3538,E,10.0,0.0,311221,,*00",
		"$GPGGA,000000,4735.6000,N,00739.3538,E,1,04,4.4,351.5,M,48.0,M,,*45",
		"$GPRMC,bad",
	}
	lines := append(strings.Split(strings.TrimSpace(sampleLog), "\n"), carry...)

	first, firstErrs := decodeAll(NewDecoder(ChecksumIgnore), lines)
	second, secondErrs := decodeAll(NewDecoder(ChecksumIgnore), lines)

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
	assert.Equal(t, firstErrs, secondErrs)

	// The carried date and time made it into the compared fixes.
	var sawDated bool
	for i, f := range first {
		assert.Equal(t, second[i].Timestamp, f.Timestamp, "fix %d", i)
		assert.Equal(t, second[i].DateKnown, f.DateKnown, "fix %d", i)
		if f.TimestampValid && f.DateKnown {
			sawDated = true
		}
	}
	assert.True(t, sawDated)

	// A decoder that is reset behaves like a fresh one.
	d := NewDecoder(ChecksumIgnore)
	_, _ = decodeAll(d, lines)
	d.Reset()
	again, _ := decodeAll(d, lines)
	assert.Equal(t, first, again)
}

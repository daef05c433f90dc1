package gps

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	log "github.com/sirupsen/logrus"

	"navsim/internal/geo"
)

// KmhPerKnot converts knots to kilometers per hour.
const KmhPerKnot = 1.852

// Sentence kinds, keyed by the last three characters of the identifier so
// that any talker (GP, GN, GL, ...) is accepted.
const (
	KindGGA = "GGA"
	KindRMC = "RMC"
	KindGLL = "GLL"
	KindGSA = "GSA"
	KindGSV = "GSV"
)

var (
	ErrEmptySentence   = errors.New("nmea: empty sentence")
	ErrUnknownSentence = errors.New("nmea: unknown sentence")
	ErrShortSentence   = errors.New("nmea: too few fields")
	ErrChecksum        = errors.New("nmea: checksum mismatch")
	ErrMalformedField  = errors.New("nmea: malformed field")
)

// ChecksumPolicy selects whether Decode verifies the "*hh" suffix.
type ChecksumPolicy int

const (
	// ChecksumIgnore accepts every sentence regardless of its checksum.
	ChecksumIgnore ChecksumPolicy = iota
	// ChecksumVerify rejects sentences whose checksum is missing or wrong.
	ChecksumVerify
)

// Fix is one decoded sentence. It is rebuilt on every Decode call; only the
// last date and time of day carry over between lines.
type Fix struct {
	Kind string

	Latitude  float64
	Longitude float64
	Speed     float64 // km/h
	Heading   float64 // degrees
	Timestamp time.Time

	PositionValid  bool
	SpeedValid     bool
	HeadingValid   bool
	TimestampValid bool

	// DateKnown is false when Timestamp only carries a time of day.
	DateKnown bool
}

// Position returns the fix coordinate.
func (f Fix) Position() geo.Point {
	return geo.Point{Lat: f.Latitude, Lon: f.Longitude}
}

// Decoder turns NMEA lines into fixes. The zero value ignores checksums.
type Decoder struct {
	Checksum ChecksumPolicy

	clock clockState
}

// clockState is the only state carried from one line to the next.
type clockState struct {
	date   time.Time
	dateOK bool
	tod    time.Duration
	todOK  bool
}

func NewDecoder(policy ChecksumPolicy) *Decoder {
	return &Decoder{Checksum: policy}
}

// Reset forgets the carried date and time of day, e.g. when a new log starts.
func (d *Decoder) Reset() {
	d.clock = clockState{}
}

// Decode parses one line. A non-nil error means the line was not usable and
// the decoder state is unchanged.
func (d *Decoder) Decode(line string) (Fix, error) {
	line = strings.TrimSpace(line)
	fields := tokenize(line)
	if len(fields) == 0 || fields[0] == "" {
		return Fix{}, ErrEmptySentence
	}
	if d.Checksum == ChecksumVerify {
		if err := verifyChecksum(line); err != nil {
			return Fix{}, err
		}
	}

	id := strings.TrimPrefix(fields[0], "$")
	if len(id) < 5 {
		return Fix{}, fmt.Errorf("%w: %q", ErrUnknownSentence, fields[0])
	}
	kind := strings.ToUpper(id[len(id)-3:])

	// Work on a copy so a failed line leaves the carried clock untouched.
	st := sentenceState{clock: d.clock, fix: Fix{Kind: kind}}
	var err error
	switch kind {
	case KindGGA:
		err = st.applyGGA(fields)
	case KindRMC:
		err = st.applyRMC(fields)
	case KindGLL:
		err = st.applyGLL(fields)
	case KindGSA, KindGSV:
		// Satellite geometry and satellites in view carry nothing we use.
		st.online = true
	default:
		return Fix{}, fmt.Errorf("%w: %q", ErrUnknownSentence, fields[0])
	}
	if err != nil {
		return Fix{}, err
	}

	if !st.online {
		st.fix.PositionValid = false
		st.fix.TimestampValid = false
		st.fix.SpeedValid = false
		st.fix.HeadingValid = false
	}
	d.clock = st.clock
	return st.fix, nil
}

type sentenceState struct {
	clock  clockState
	fix    Fix
	online bool
}

// GGA: Global Positioning System Fix Data
// Fields:
//
//	0: talker+type
//	1: time (hhmmss.sss)
//	2: latitude (ddmm.mmmm)
//	3: N/S
//	4: longitude (dddmm.mmmm)
//	5: E/W
//	6: fix quality (0=invalid)
//	7: number of satellites
func (s *sentenceState) applyGGA(f []string) error {
	if len(f) < 7 {
		return ErrShortSentence
	}
	s.decodeTime(f[1])

	quality := 0
	if q := strings.TrimSpace(f[6]); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil {
			return fmt.Errorf("%w: fix quality %q", ErrMalformedField, q)
		}
		quality = v
	}
	if quality <= 0 {
		s.online = false
		return nil
	}
	if err := s.decodePosition(f[2], f[3], f[4], f[5]); err != nil {
		return err
	}
	s.online = true
	return nil
}

// RMC: Recommended Minimum Specific GNSS Data
// Fields (NMEA 0183 v2.3):
//
//	0: talker+type
//	1: time (hhmmss.sss)
//	2: status (A=active, V=void)
//	3: latitude (ddmm.mmmm)
//	4: N/S
//	5: longitude (dddmm.mmmm)
//	6: E/W
//	7: speed over ground (knots)
//	8: course over ground (deg)
//	9: date (ddmmyy)
func (s *sentenceState) applyRMC(f []string) error {
	if len(f) < 3 {
		return ErrShortSentence
	}
	s.decodeTime(f[1])
	if strings.TrimSpace(f[2]) != "A" {
		s.online = false
		return nil
	}
	if len(f) < 7 {
		return ErrShortSentence
	}
	if err := s.decodePosition(f[3], f[4], f[5], f[6]); err != nil {
		return err
	}
	if len(f) > 7 && strings.TrimSpace(f[7]) != "" {
		kt, err := parseFloatField("speed", f[7])
		if err != nil {
			return err
		}
		s.fix.Speed = kt * KmhPerKnot
		s.fix.SpeedValid = true
	}
	if len(f) > 8 && strings.TrimSpace(f[8]) != "" {
		trk, err := parseFloatField("course", f[8])
		if err != nil {
			return err
		}
		s.fix.Heading = trk
		s.fix.HeadingValid = true
	}
	if len(f) > 9 && strings.TrimSpace(f[9]) != "" {
		// Not every receiver sends the date.
		s.decodeDate(f[9])
	}
	s.online = true
	return nil
}

// GLL: Geographic Position - Latitude/Longitude
// Fields:
//
//	0: talker+type
//	1: latitude
//	2: N/S
//	3: longitude
//	4: E/W
//	5: time
//	6: status (A=active, V=void)
func (s *sentenceState) applyGLL(f []string) error {
	if len(f) < 7 {
		return ErrShortSentence
	}
	if strings.TrimSpace(f[6]) != "A" {
		s.online = false
		return nil
	}
	if err := s.decodePosition(f[1], f[2], f[3], f[4]); err != nil {
		return err
	}
	s.decodeTime(f[5])
	s.online = true
	return nil
}

func (s *sentenceState) decodePosition(lat, ns, lon, ew string) error {
	latDeg, err := parseLatLon(lat, ns, 2)
	if err != nil {
		return err
	}
	lonDeg, err := parseLatLon(lon, ew, 3)
	if err != nil {
		return err
	}
	s.fix.Latitude = latDeg
	s.fix.Longitude = lonDeg
	s.fix.PositionValid = true
	return nil
}

// decodeTime parses hhmmss[.sss]. Failures are logged and leave the
// timestamp unset.
func (s *sentenceState) decodeTime(v string) {
	v = strings.TrimSpace(v)
	if dot := strings.IndexByte(v, '.'); dot != -1 {
		v = v[:dot]
	}
	tod, ok := parseHHMMSS(v)
	if !ok {
		log.WithField("value", v).Warn("nmea: time convert failed")
		return
	}
	s.clock.tod = tod
	s.clock.todOK = true

	if s.clock.dateOK {
		s.fix.Timestamp = s.clock.date.Add(tod)
		s.fix.DateKnown = true
	} else {
		s.fix.Timestamp = time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(tod)
		s.fix.DateKnown = false
	}
	s.fix.TimestampValid = true
}

// decodeDate parses ddmmyy (20yy) and combines it with the last time of day.
func (s *sentenceState) decodeDate(v string) {
	v = strings.TrimSpace(v)
	date, ok := parseDDMMYY(v)
	if !ok {
		log.WithField("value", v).Warn("nmea: date convert failed")
		return
	}
	s.clock.date = date
	s.clock.dateOK = true

	ts := date
	if s.clock.todOK {
		ts = date.Add(s.clock.tod)
	}
	s.fix.Timestamp = ts
	s.fix.TimestampValid = true
	s.fix.DateKnown = true
}

// tokenize splits a sentence on ',' and '*', keeping empty fields so that
// positional indexes stay stable.
func tokenize(line string) []string {
	if line == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(line, "*", ","), ",")
}

func verifyChecksum(line string) error {
	start := strings.IndexByte(line, '$')
	star := strings.LastIndexByte(line, '*')
	if start == -1 || star == -1 || star < start {
		return fmt.Errorf("%w: missing checksum", ErrChecksum)
	}
	want := strings.ToUpper(strings.TrimSpace(line[star+1:]))
	if len(want) < 2 {
		return fmt.Errorf("%w: short checksum %q", ErrChecksum, want)
	}
	want = want[:2]
	got := nmea.Checksum(line[start+1 : star])
	if got != want {
		return fmt.Errorf("%w: got %s want %s", ErrChecksum, want, got)
	}
	return nil
}

// parseLatLon decodes a fixed-width degrees prefix followed by decimal
// minutes: ddmm.mmmm for latitude (degWidth 2), dddmm.mmmm for longitude
// (degWidth 3).
func parseLatLon(v, hemi string, degWidth int) (float64, error) {
	v = strings.TrimSpace(v)
	if len(v) <= degWidth {
		return 0, fmt.Errorf("%w: coordinate %q", ErrMalformedField, v)
	}
	deg, err := strconv.Atoi(v[:degWidth])
	if err != nil {
		return 0, fmt.Errorf("%w: coordinate %q", ErrMalformedField, v)
	}
	mins, err := strconv.ParseFloat(v[degWidth:], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: coordinate %q", ErrMalformedField, v)
	}
	out := float64(deg) + mins/60.0
	switch strings.ToUpper(strings.TrimSpace(hemi)) {
	case "S", "W":
		out = -out
	}
	return out, nil
}

func parseFloatField(name, v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrMalformedField, name, v)
	}
	return f, nil
}

func parseHHMMSS(v string) (time.Duration, bool) {
	if len(v) != 6 {
		return 0, false
	}
	hh, ok1 := atoi2(v[0:2])
	mm, ok2 := atoi2(v[2:4])
	ss, ok3 := atoi2(v[4:6])
	if !ok1 || !ok2 || !ok3 || hh > 23 || mm > 59 || ss > 60 {
		return 0, false
	}
	return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute + time.Duration(ss)*time.Second, true
}

func parseDDMMYY(v string) (time.Time, bool) {
	if len(v) != 6 {
		return time.Time{}, false
	}
	dd, ok1 := atoi2(v[0:2])
	mo, ok2 := atoi2(v[2:4])
	yy, ok3 := atoi2(v[4:6])
	if !ok1 || !ok2 || !ok3 || mo < 1 || mo > 12 || dd < 1 {
		return time.Time{}, false
	}
	t := time.Date(2000+yy, time.Month(mo), dd, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow; reject dates like 31 February.
	if t.Day() != dd || int(t.Month()) != mo {
		return time.Time{}, false
	}
	return t, true
}

func atoi2(v string) (int, bool) {
	if len(v) != 2 || v[0] < '0' || v[0] > '9' || v[1] < '0' || v[1] > '9' {
		return 0, false
	}
	return int(v[0]-'0')*10 + int(v[1]-'0'), true
}

package replay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"navsim/internal/geo"
	"navsim/internal/trajectory"
)

// Log format: line-oriented text.
//
// - Blank lines ignored.
// - Lines starting with '#' ignored.
// - Line "START" begins a new session (next record time is relative to 0 again).
// - Data lines are: <t_ns>,<lat>,<lon>,<speed_kmh>
//   where t_ns is nanoseconds since the first step of the session.
//
// This is intentionally simple and stable so recorded drives can be diffed
// and replayed in tests.

type Record struct {
	At    time.Duration
	Coord geo.Point
	Speed float64
	// Start marks a START line; the other fields are unset.
	Start bool
}

// Records converts steps into a single session.
func Records(steps []trajectory.Step) []Record {
	recs := make([]Record, 0, len(steps)+1)
	recs = append(recs, Record{Start: true})
	if len(steps) == 0 {
		return recs
	}
	origin := steps[0].Time
	for _, s := range steps {
		recs = append(recs, Record{At: s.Time.Sub(origin), Coord: s.Coord, Speed: s.Speed})
	}
	return recs
}

// Steps converts records back into steps starting at base. Each session
// continues where the previous one ended.
func Steps(recs []Record, base time.Time) []trajectory.Step {
	out := make([]trajectory.Step, 0, len(recs))
	var offset, last time.Duration
	for _, r := range recs {
		if r.Start {
			offset = last
			continue
		}
		at := offset + r.At
		out = append(out, trajectory.Step{Time: base.Add(at), Speed: r.Speed, Coord: r.Coord})
		last = at
	}
	return out
}

type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (rr *Reader) ReadAll() ([]Record, error) {
	s := bufio.NewScanner(rr.r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	recs := make([]Record, 0, 1024)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" {
			recs = append(recs, Record{Start: true})
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid replay line (want 4 fields): %q", line)
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
			if parts[i] == "" {
				return nil, fmt.Errorf("invalid replay line (empty field): %q", line)
			}
		}

		tsNs, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid replay timestamp %q: %w", parts[0], err)
		}
		if tsNs < 0 {
			return nil, fmt.Errorf("invalid replay timestamp (negative): %d", tsNs)
		}
		var vals [3]float64
		for i := range vals {
			v, err := strconv.ParseFloat(parts[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid replay value %q: %w", parts[i+1], err)
			}
			vals[i] = v
		}
		if vals[0] < -90 || vals[0] > 90 || vals[1] < -180 || vals[1] > 180 {
			return nil, fmt.Errorf("invalid replay coordinate: %q", line)
		}

		recs = append(recs, Record{
			At:    time.Duration(tsNs) * time.Nanosecond,
			Coord: geo.Point{Lat: vals[0], Lon: vals[1]},
			Speed: vals[2],
		})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	return recs, nil
}

// ReadFile reads a whole trajectory log.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewReader(f).ReadAll()
}

type Writer struct {
	c       io.Closer
	w       *bufio.Writer
	start   time.Time
	started bool
	closed  bool
}

func CreateWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	ww, err := NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	ww.c = f
	return ww, nil
}

// NewWriter writes a log session to w. Close flushes but does not close w.
func NewWriter(w io.Writer) (*Writer, error) {
	bw := bufio.NewWriterSize(w, 64*1024)
	if _, err := bw.WriteString("START\n"); err != nil {
		return nil, err
	}
	return &Writer{w: bw}, nil
}

// WriteStep appends one step. Times are relative to the first step written.
func (ww *Writer) WriteStep(s trajectory.Step) error {
	if ww.closed {
		return errors.New("replay writer is closed")
	}
	if !ww.started {
		ww.start = s.Time
		ww.started = true
	}

	d := s.Time.Sub(ww.start)
	if d < 0 {
		d = 0
	}
	_, err := fmt.Fprintf(ww.w, "%d,%s,%s,%s\n",
		d.Nanoseconds(),
		strconv.FormatFloat(s.Coord.Lat, 'f', -1, 64),
		strconv.FormatFloat(s.Coord.Lon, 'f', -1, 64),
		strconv.FormatFloat(s.Speed, 'f', -1, 64),
	)
	return err
}

// WriteSteps appends every step in order.
func (ww *Writer) WriteSteps(steps []trajectory.Step) error {
	for _, s := range steps {
		if err := ww.WriteStep(s); err != nil {
			return err
		}
	}
	return nil
}

func (ww *Writer) Flush() error {
	if ww.closed {
		return nil
	}
	return ww.w.Flush()
}

func (ww *Writer) Close() error {
	if ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		if ww.c != nil {
			_ = ww.c.Close()
		}
		return err
	}
	if ww.c != nil {
		return ww.c.Close()
	}
	return nil
}

type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// Play replays records with their relative timing.
//
// The callback is invoked for each data record. START markers are honored by
// resetting the origin. ctx is checked between records.
//
// speedMultiplier: 1.0 = real time, 2.0 = 2x speed (half waits), 0.5 = half speed.
func Play(ctx context.Context, records []Record, speedMultiplier float64, loop bool, sleeper Sleeper, cb func(Record) error) error {
	if speedMultiplier <= 0 {
		return fmt.Errorf("speedMultiplier must be > 0")
	}
	if sleeper == nil {
		sleeper = realSleeper{}
	}
	if cb == nil {
		return errors.New("callback is nil")
	}
	if len(records) == 0 {
		return errors.New("no records")
	}

	for {
		var origin time.Duration
		var lastAt time.Duration
		var haveLast bool

		for _, r := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			if r.Start {
				origin = r.At
				lastAt = 0
				haveLast = false
				continue
			}

			at := r.At - origin
			if at < 0 {
				at = 0
			}
			if haveLast {
				wait := at - lastAt
				if wait < 0 {
					wait = 0
				}
				wait = time.Duration(float64(wait) / speedMultiplier)
				if wait > 0 {
					sleeper.Sleep(wait)
				}
			}

			if err := cb(r); err != nil {
				return err
			}

			lastAt = at
			haveLast = true
		}

		if !loop {
			return nil
		}
	}
}

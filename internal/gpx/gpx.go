// Package gpx exports a route and its simulated track as a GPX 1.1 document
// and reads such documents back into trajectory steps.
package gpx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	gpxgo "github.com/tkrajina/gpxgo/gpx"

	"navsim/internal/geo"
	"navsim/internal/trajectory"
)

const (
	Version = "1.1"
	Creator = "navsim"
	// fix2D marks every point as a two-dimensional fix; the simulation has no
	// altitude.
	fix2D = "2d"
)

var (
	ErrNoSteps = errors.New("gpx: no track points")
	ErrNoTrack = errors.New("gpx: document has no track points")
)

func point(p geo.Point) gpxgo.GPXPoint {
	return gpxgo.GPXPoint{
		Point:        gpxgo.Point{Latitude: p.Lat, Longitude: p.Lon},
		TypeOfGpsFix: fix2D,
	}
}

// Build assembles the document: Start and Target waypoints, the route
// geometry when route is not empty, and one track point per step. GPX 1.1
// has no per-point speed; Steps derives it back from times and positions.
func Build(route []geo.Point, steps []trajectory.Step) (*gpxgo.GPX, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	start, target := point(steps[0].Coord), point(steps[len(steps)-1].Coord)
	start.Name = "Start"
	target.Name = "Target"

	doc := &gpxgo.GPX{
		Version:   Version,
		Creator:   Creator,
		Waypoints: []gpxgo.GPXPoint{start, target},
	}
	if len(route) > 0 {
		r := gpxgo.GPXRoute{Name: "Route", Points: make([]gpxgo.GPXPoint, len(route))}
		for i, p := range route {
			r.Points[i] = gpxgo.GPXPoint{Point: gpxgo.Point{Latitude: p.Lat, Longitude: p.Lon}}
		}
		doc.Routes = []gpxgo.GPXRoute{r}
	}

	seg := gpxgo.GPXTrackSegment{Points: make([]gpxgo.GPXPoint, len(steps))}
	for i, s := range steps {
		tp := point(s.Coord)
		tp.Timestamp = s.Time.UTC()
		seg.Points[i] = tp
	}
	doc.Tracks = []gpxgo.GPXTrack{{Name: "GPS", Segments: []gpxgo.GPXTrackSegment{seg}}}
	return doc, nil
}

// Write encodes the document as indented GPX 1.1 with an XML header.
func Write(w io.Writer, route []geo.Point, steps []trajectory.Step) error {
	doc, err := Build(route, steps)
	if err != nil {
		return err
	}
	b, err := doc.ToXml(gpxgo.ToXmlParams{Version: Version, Indent: true})
	if err != nil {
		return fmt.Errorf("encode gpx: %w", err)
	}
	if !bytes.HasSuffix(b, []byte("\n")) {
		b = append(b, '\n')
	}
	_, err = w.Write(b)
	return err
}

// WriteFile writes the document to path, replacing any existing file.
func WriteFile(path string, route []geo.Point, steps []trajectory.Step) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create GPX file %s: %w", path, err)
	}
	if err := Write(f, route, steps); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Read decodes a GPX 1.0 or 1.1 document.
func Read(r io.Reader) (*gpxgo.GPX, error) {
	doc, err := gpxgo.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("decode gpx: %w", err)
	}
	return doc, nil
}

// Steps flattens every track segment of doc into steps. Speeds in km/h are
// derived from the distance and time to the next point; the last point keeps
// the speed of the one before it. A nil model means geo.DefaultModel.
func Steps(doc *gpxgo.GPX, model geo.Model) ([]trajectory.Step, error) {
	if model == nil {
		model = geo.DefaultModel()
	}
	var steps []trajectory.Step
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			for _, p := range seg.Points {
				steps = append(steps, trajectory.Step{
					Time:  p.Timestamp,
					Coord: geo.Point{Lat: p.Latitude, Lon: p.Longitude},
				})
			}
		}
	}
	if len(steps) == 0 {
		return nil, ErrNoTrack
	}
	for i := 0; i+1 < len(steps); i++ {
		dt := steps[i+1].Time.Sub(steps[i].Time).Seconds()
		if dt <= 0 {
			continue
		}
		steps[i].Speed = model.Distance(steps[i].Coord, steps[i+1].Coord) / dt * 3.6
	}
	if n := len(steps); n > 1 {
		steps[n-1].Speed = steps[n-2].Speed
	}
	return steps, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"navsim/internal/config"
	"navsim/internal/geo"
	"navsim/internal/gps"
	"navsim/internal/gpx"
	"navsim/internal/route"
	"navsim/internal/trajectory"
)

// source names where a trajectory comes from. Exactly one path must be set.
type source struct {
	RoutePath string
	NMEAPath  string
	// TrackPath is a GPX file whose track is replayed as recorded.
	TrackPath string
}

func (s source) validate() error {
	n := 0
	for _, p := range []string{s.RoutePath, s.NMEAPath, s.TrackPath} {
		if p != "" {
			n++
		}
	}
	switch {
	case n == 0:
		return errors.New("one of --route, --nmea or --track is required")
	case n > 1:
		return errors.New("--route, --nmea and --track are mutually exclusive")
	}
	return nil
}

func (s *source) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&s.RoutePath, "route", "", "YAML route script")
	fs.StringVar(&s.NMEAPath, "nmea", "", "NMEA log")
	fs.StringVar(&s.TrackPath, "track", "", "GPX track")
}

// loadRoute builds the waypoints of a route script. The returned speed is the
// script's default_speed_kmh, or the configured default when it has none.
func loadRoute(cfg config.Config, path string) ([]route.Waypoint, float64, error) {
	script, err := route.LoadScript(path)
	if err != nil {
		return nil, 0, err
	}
	wps, err := script.Build(route.BuildOptions{
		Speeds:       cfg.SpeedTable,
		DefaultSpeed: cfg.Resample.DefaultSpeedKmh,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	speed := cfg.Resample.DefaultSpeedKmh
	if script.DefaultSpeedKmh > 0 {
		speed = script.DefaultSpeedKmh
	}
	log.WithFields(log.Fields{"path": path, "waypoints": len(wps), "default_speed_kmh": speed}).Info("route loaded")
	return wps, speed, nil
}

// trajectoryFrom resamples the source into steps. It also returns the
// waypoints when the source is a route script, and the points that outline
// the drive for GPX output.
func trajectoryFrom(ctx context.Context, cfg config.Config, src source) ([]trajectory.Step, []route.Waypoint, []geo.Point, error) {
	if err := src.validate(); err != nil {
		return nil, nil, nil, err
	}
	opts := cfg.Resample.Options()

	if src.RoutePath != "" {
		wps, speed, err := loadRoute(cfg, src.RoutePath)
		if err != nil {
			return nil, nil, nil, err
		}
		opts.DefaultSpeed = speed
		steps, err := trajectory.FromRoute(wps, opts)
		if err != nil {
			return nil, nil, nil, err
		}
		return steps, wps, route.Points(wps), nil
	}

	if src.TrackPath != "" {
		steps, err := readTrack(src.TrackPath)
		if err != nil {
			return nil, nil, nil, err
		}
		return steps, nil, []geo.Point{steps[0].Coord, steps[len(steps)-1].Coord}, nil
	}

	d := gps.NewDecoder(cfg.NMEA.ChecksumPolicy())
	fixes, _, err := gps.ReadFile(ctx, src.NMEAPath, d)
	if err != nil {
		return nil, nil, nil, err
	}
	steps, err := trajectory.FromFixes(fixes, opts)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", src.NMEAPath, err)
	}
	var outline []geo.Point
	if first, ok := gps.FirstPosition(fixes); ok {
		outline = append(outline, first)
		if far, ok := gps.FarthestPosition(fixes, first); ok {
			outline = append(outline, far)
		}
	}
	return steps, nil, outline, nil
}

func readTrack(path string) ([]trajectory.Step, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := gpx.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	steps, err := gpx.Steps(doc, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.WithFields(log.Fields{"path": path, "steps": len(steps)}).Info("gpx track loaded")
	return steps, nil
}

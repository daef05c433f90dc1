package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"navsim/internal/geo"
	"navsim/internal/replay"
)

type logSummary struct {
	Segments    int
	Steps       int
	MaxDuration time.Duration
	DistanceM   float64
	MaxSpeed    float64
	MeanSpeed   float64
}

func summarizeTrajectoryLog(records []replay.Record) logSummary {
	var s logSummary
	if len(records) == 0 {
		return s
	}

	origin := time.Duration(0)
	hasSteps := false
	segments := 0
	var prev geo.Point
	havePrev := false
	speedSum := 0.0

	for _, r := range records {
		if r.Start {
			segments++
			origin = r.At
			havePrev = false
			continue
		}
		hasSteps = true

		s.Steps++
		at := r.At - origin
		if at < 0 {
			at = 0
		}
		if at > s.MaxDuration {
			s.MaxDuration = at
		}
		if havePrev {
			s.DistanceM += geo.Distance(prev, r.Coord)
		}
		prev = r.Coord
		havePrev = true

		speedSum += r.Speed
		if r.Speed > s.MaxSpeed {
			s.MaxSpeed = r.Speed
		}
	}
	if segments == 0 && hasSteps {
		segments = 1
	}
	s.Segments = segments
	if s.Steps > 0 {
		s.MeanSpeed = speedSum / float64(s.Steps)
	}
	return s
}

func summaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <trajectory.log>",
		Short: "Summarize a recorded trajectory log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printLogSummary(cmd.OutOrStdout(), args[0])
		},
	}
}

func printLogSummary(w io.Writer, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}

	recs, err := replay.ReadFile(path)
	if err != nil {
		return err
	}

	s := summarizeTrajectoryLog(recs)

	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "steps: %d\n", s.Steps)
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)
	fmt.Fprintf(w, "distance_m: %.1f\n", s.DistanceM)
	fmt.Fprintf(w, "max_speed_kmh: %.1f\n", s.MaxSpeed)
	fmt.Fprintf(w, "mean_speed_kmh: %.1f\n", s.MeanSpeed)
	return nil
}

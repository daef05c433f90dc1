package main

import (
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"navsim/internal/gpx"
	"navsim/internal/replay"
	"navsim/internal/trajectory"
)

func resampleCmd(a *app) *cobra.Command {
	var src source
	var outPath, gpxPath string
	var printAll bool

	cmd := &cobra.Command{
		Use:   "resample",
		Short: "Resample a route script or NMEA log into one step per second",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _, outline, err := trajectoryFrom(cmd.Context(), a.cfg, src)
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := writeTrajectoryLog(outPath, steps); err != nil {
					return err
				}
			}
			if gpxPath != "" {
				if err := gpx.WriteFile(gpxPath, outline, steps); err != nil {
					return err
				}
				log.WithFields(log.Fields{"path": gpxPath, "points": len(steps)}).Info("gpx written")
			}
			w := cmd.OutOrStdout()
			if printAll {
				printSteps(w, steps)
			}
			fmt.Fprintf(w, "steps: %d\n", len(steps))
			fmt.Fprintf(w, "length_m: %.1f\n", trajectory.Length(steps, nil))
			fmt.Fprintf(w, "elapsed: %s\n", trajectory.Elapsed(steps))
			return nil
		},
	}

	src.addFlags(cmd.Flags())
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write a trajectory log")
	cmd.Flags().StringVar(&gpxPath, "gpx", "", "Write a GPX file")
	cmd.Flags().BoolVar(&printAll, "print", false, "Print every step")
	return cmd
}

func writeTrajectoryLog(path string, steps []trajectory.Step) error {
	w, err := replay.CreateWriter(path)
	if err != nil {
		return err
	}
	if err := w.WriteSteps(steps); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	log.WithFields(log.Fields{"path": path, "steps": len(steps)}).Info("trajectory log written")
	return nil
}

func printSteps(w io.Writer, steps []trajectory.Step) {
	for i, s := range steps {
		fmt.Fprintf(w, "%d %s %.6f,%.6f %.1fkm/h\n", i, s.Time.UTC().Format(time.RFC3339), s.Coord.Lat, s.Coord.Lon, s.Speed)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"navsim/internal/config"
	"navsim/internal/replay"
	"navsim/internal/route"
	"navsim/internal/sim"
	"navsim/internal/trajectory"
)

func simulateCmd(a *app) *cobra.Command {
	var src source
	var pace float64

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive a trajectory against a route and print what the display shows",
		Long: `simulate resamples --route, --nmea or --track and replays the steps against the route.
With sim.replay.enable the steps come from a recorded trajectory log instead and
--route only supplies the instructions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd.Context(), a.cfg, src, pace, cmd.OutOrStdout())
		},
	}

	src.addFlags(cmd.Flags())
	cmd.Flags().Float64Var(&pace, "pace", 0, "Replay in real time divided by pace (0 runs as fast as possible)")
	return cmd
}

func runSimulation(ctx context.Context, cfg config.Config, src source, pace float64, w io.Writer) error {
	var (
		steps []trajectory.Step
		wps   []route.Waypoint
		err   error
	)
	loop := false
	if cfg.Sim.Replay.Enable {
		recs, rerr := replay.ReadFile(cfg.Sim.Replay.Path)
		if rerr != nil {
			return rerr
		}
		start := cfg.Resample.Options().Start
		if start.IsZero() {
			start = time.Now().UTC()
		}
		steps = replay.Steps(recs, start)
		if pace <= 0 {
			pace = cfg.Sim.Replay.Speed
		}
		loop = cfg.Sim.Replay.Loop
		log.WithFields(log.Fields{"path": cfg.Sim.Replay.Path, "steps": len(steps), "speed": pace}).Info("replay enabled")

		if src.RoutePath != "" {
			if wps, _, err = loadRoute(cfg, src.RoutePath); err != nil {
				return err
			}
		}
	} else {
		steps, wps, _, err = trajectoryFrom(ctx, cfg, src)
		if err != nil {
			return err
		}
	}

	if cfg.Sim.Record.Enable {
		if err := writeTrajectoryLog(cfg.Sim.Record.Path, steps); err != nil {
			return err
		}
	}

	d := &sim.Driver{
		Route:     wps,
		OffRouteM: cfg.Sim.OffRouteM,
		Pace:      pace,
	}
	for {
		sum, err := d.Run(ctx, steps, func(ev sim.Event) error {
			printEvent(w, ev)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			printSummary(w, sum)
			return nil
		}
		if err != nil {
			return err
		}
		printSummary(w, sum)
		if !loop {
			return nil
		}
	}
}

func printEvent(w io.Writer, ev sim.Event) {
	prefix := fmt.Sprintf("%s step=%d at=%.0fm", ev.Time.UTC().Format(time.RFC3339), ev.Step, ev.Travelled)
	switch ev.Kind {
	case sim.EventRouteState:
		fmt.Fprintf(w, "%s state: %s\n", prefix, ev.State)
	case sim.EventBearing:
		fmt.Fprintf(w, "%s heading: %s\n", prefix, ev.Bearing)
	case sim.EventInstruction:
		fmt.Fprintf(w, "%s in %.0fm: %s\n", prefix, math.Max(ev.Description.Distance-ev.Travelled, 0), ev.Description.Instructions)
	}
}

func printSummary(w io.Writer, s sim.Summary) {
	fmt.Fprintf(w, "steps: %d\n", s.Steps)
	fmt.Fprintf(w, "travelled_m: %.1f\n", s.Travelled)
	fmt.Fprintf(w, "elapsed: %s\n", s.Elapsed)
	fmt.Fprintf(w, "instructions: %d\n", s.Instructions)
	fmt.Fprintf(w, "off_route_steps: %d\n", s.OffRouteSteps)
}

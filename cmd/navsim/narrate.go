package main

import (
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"navsim/internal/narration"
	"navsim/internal/route"
)

func narrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "narrate <route.yaml>",
		Short: "Print every instruction of a route script in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wps, _, err := loadRoute(a.cfg, args[0])
			if err != nil {
				return err
			}
			printDescriptions(cmd.OutOrStdout(), narrateAll(wps, nil))
			return nil
		},
	}
}

// narrateAll walks the narrator just past each described waypoint until the
// route is exhausted.
func narrateAll(wps []route.Waypoint, r narration.Renderer) []narration.Description {
	n := narration.New(wps, r)
	var out []narration.Description
	travelled := 0.0
	for !n.Done() {
		d := n.Advance(travelled)
		if d.Instructions != "" {
			out = append(out, d)
		}
		travelled = math.Nextafter(d.Distance, math.Inf(1))
	}
	return out
}

func printDescriptions(w io.Writer, descs []narration.Description) {
	for _, d := range descs {
		fmt.Fprintf(w, "#%d at %.0fm (%s)", d.Index, d.Distance, d.Time)
		if d.RoundaboutExitNumber >= 0 {
			fmt.Fprintf(w, " exit=%d", d.RoundaboutExitNumber)
		}
		fmt.Fprintf(w, ": %s\n", d.Instructions)
	}
}

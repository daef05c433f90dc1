package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"navsim/internal/gps"
)

func decodeCmd(a *app) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "decode <file.nmea>",
		Short: "Decode an NMEA log and print one line per fix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := a.cfg.NMEA.ChecksumPolicy()
			if verify {
				policy = gps.ChecksumVerify
			}
			fixes, stats, err := gps.ReadFile(cmd.Context(), args[0], gps.NewDecoder(policy))
			if err != nil {
				return err
			}
			printFixes(cmd.OutOrStdout(), fixes, stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Reject sentences with a bad checksum")
	return cmd
}

func printFixes(w io.Writer, fixes []gps.Fix, stats gps.ReadStats) {
	for _, f := range fixes {
		fmt.Fprintf(w, "%s %s\n", f.Kind, formatFix(f))
	}
	fmt.Fprintf(w, "lines: %d\n", stats.Lines)
	fmt.Fprintf(w, "decoded: %d\n", stats.Decoded)
	fmt.Fprintf(w, "skipped: %d\n", stats.Skipped)
	if stats.LastError != "" {
		fmt.Fprintf(w, "last_error: %s\n", stats.LastError)
	}
}

func formatFix(f gps.Fix) string {
	pos, speed, heading, ts := "-", "-", "-", "-"
	if f.PositionValid {
		pos = fmt.Sprintf("%.6f,%.6f", f.Latitude, f.Longitude)
	}
	if f.SpeedValid {
		speed = fmt.Sprintf("%.2fkm/h", f.Speed)
	}
	if f.HeadingValid {
		heading = fmt.Sprintf("%.1fdeg", f.Heading)
	}
	if f.TimestampValid {
		if f.DateKnown {
			ts = f.Timestamp.UTC().Format(time.RFC3339)
		} else {
			ts = f.Timestamp.UTC().Format("15:04:05")
		}
	}
	return fmt.Sprintf("pos=%s speed=%s heading=%s time=%s", pos, speed, heading, ts)
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"navsim/internal/config"
	"navsim/internal/logging"
)

// app carries what every subcommand needs after the root has loaded the
// configuration.
type app struct {
	configPath string
	logLevel   string

	cfg       config.Config
	logCloser io.Closer
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "navsim",
		Short: "Decode NMEA logs, resample routes and narrate turn-by-turn instructions",
		Long: `navsim turns a planned route or a recorded NMEA drive into a one-step-per-second
trajectory and replays it against the route, printing the navigation
instructions a driver would hear.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logCloser == nil {
				return nil
			}
			return a.logCloser.Close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to YAML config (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override log.level from the config")

	rootCmd.AddCommand(decodeCmd(a))
	rootCmd.AddCommand(resampleCmd(a))
	rootCmd.AddCommand(narrateCmd(a))
	rootCmd.AddCommand(simulateCmd(a))
	rootCmd.AddCommand(summaryCmd(a))
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		cfg, err = config.Load(a.configPath)
		if err != nil {
			return fmt.Errorf("config load failed: %w", err)
		}
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	closer, err := logging.Configure(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logCloser = closer
	log.WithField("config", a.configPath).Debug("navsim starting")
	return nil
}

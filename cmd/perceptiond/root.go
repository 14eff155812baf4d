package main

import (
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-cockpit/internal/config"
	"github.com/teslashibe/go-cockpit/internal/log"
)

type rootOptions struct {
	logLevel   string
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "perceptiond",
		Short: "In-cabin perceptual event engine",
		Long: `perceptiond turns per-frame face, eye and hand observations into
semantic events: head nods and shakes, gaze direction and distraction,
and hand gesture commands.

Examples:
  # Serve sessions over WebSocket
  perceptiond serve --addr :8080 --journal cockpit.db

  # Replay a recording locally and print the events
  perceptiond replay -f drive.jsonl

  # Stream a recording to a running server
  perceptiond replay -f drive.jsonl --remote ws://localhost:8080/ws/session`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Init(opts.logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", config.LogLevel(), "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.PerceptionPath(), "engine config YAML (defaults when empty)")

	cmd.AddCommand(newServeCmd(opts), newReplayCmd(opts), newVersionCmd())
	return cmd
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-cockpit/internal/config"
	"github.com/teslashibe/go-cockpit/internal/log"
	"github.com/teslashibe/go-cockpit/pkg/journal"
	"github.com/teslashibe/go-cockpit/pkg/vision"
	"github.com/teslashibe/go-cockpit/pkg/web"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		addr        string
		journalPath string
		refine      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve perception sessions over WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadPerception(root.configPath)
			if err != nil {
				return err
			}

			opts := web.Options{Config: cfg}
			if journalPath != "" && journalPath != "off" {
				j, err := journal.Open(journalPath)
				if err != nil {
					return err
				}
				defer j.Close()
				opts.Journal = j
			}
			if refine {
				opts.Refiner = vision.NewPupilDetector(vision.DefaultConfig())
			}

			srv, err := web.NewServer(addr, opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = srv.Start(ctx)
			log.Info("perception server stopped")
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", config.ListenAddr(config.DefaultListenAddr), "listen address")
	cmd.Flags().StringVar(&journalPath, "journal", config.JournalPath(), `SQLite event journal path ("off" to disable)`)
	cmd.Flags().BoolVar(&refine, "pupil-refine", true, "refine pupils from frame images when clients send them")
	return cmd
}

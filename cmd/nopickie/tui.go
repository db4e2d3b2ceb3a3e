package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nopickie/nopickie/internal/backend"
	bdbus "github.com/nopickie/nopickie/internal/backend/dbus"
	"github.com/nopickie/nopickie/internal/event"
	"github.com/nopickie/nopickie/internal/tui"
)

var tuiOpts struct {
	bridge bool
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive dashboard",
	Long: `Launch the terminal dashboard.

The dashboard provides:
  - Start/stop controls and the backend's detection state
  - A live activity log of backend events
  - Daily and weekly trigger statistics
  - The backend's debug frame status (with [tui] show_debug)

With --bridge the backend is also exported on the session bus, so
nopickie-alert can show popups for a detector owned by this process.

Key bindings:
  s / x       Start / stop detection
  tab         Switch view
  h/l, ←/→    Previous / next week
  d           Toggle the backend's debug window
  o           Open the screenshots folder
  c / y       Copy the log / the week as YAML
  ?           Show help
  q           Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().BoolVar(&tuiOpts.bridge, "bridge", false,
		"Export the backend on the session bus while the TUI runs")
	rootCmd.Flags().BoolVar(&tuiOpts.bridge, "bridge", false,
		"Export the backend on the session bus while the TUI runs")
}

func runTUI(cmd *cobra.Command, args []string) error {
	return withBackend(cmd, func(ctx context.Context, client backend.Client, bus *event.Bus) error {
		if tuiOpts.bridge {
			server := bdbus.NewServer(client, bus, cfg.Backend.Timeout.Duration(), logger)
			if err := server.Start(); err != nil {
				logger.Warn("failed to start D-Bus bridge", "error", err)
			} else {
				defer func() { _ = server.Stop() }()
			}
		}

		return tui.Run(ctx, tui.Options{
			Config:  cfg,
			Backend: client,
			Bus:     bus,
			Logger:  logger,
		})
	})
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nopickie/nopickie/internal/backend"
	bdbus "github.com/nopickie/nopickie/internal/backend/dbus"
	"github.com/nopickie/nopickie/internal/config"
	"github.com/nopickie/nopickie/internal/event"
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Export the backend on the session bus",
	Long: `Connect to the backend and export it on the session bus as
io.nopickie.Backend, re-emitting every backend event as a signal.

This lets nopickie-alert and other clients use the dbus transport while this
process owns the detector. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
}

func runBridge(cmd *cobra.Command, args []string) error {
	if config.Transport(cfg.Backend.Transport) == config.TransportDBus {
		return fmt.Errorf("bridge needs a process or socket transport, not dbus")
	}

	return withBackend(cmd, func(ctx context.Context, client backend.Client, bus *event.Bus) error {
		server := bdbus.NewServer(client, bus, cfg.Backend.Timeout.Duration(), logger)
		if err := server.Start(); err != nil {
			return err
		}
		defer func() {
			if err := server.Stop(); err != nil {
				logger.Warn("failed to stop D-Bus bridge", "error", err)
			}
		}()

		logger.Info("backend exported on the session bus")

		var done <-chan struct{}
		if lt, ok := client.(backend.Lifetime); ok {
			done = lt.Done()
		}
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return fmt.Errorf("backend connection closed")
		}
	})
}

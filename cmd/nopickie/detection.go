package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nopickie/nopickie/internal/backend"
	"github.com/nopickie/nopickie/internal/event"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start detection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd, func(ctx context.Context, client backend.Client, _ *event.Bus) error {
			msg, err := client.StartDetection(ctx)
			if err != nil {
				return fmt.Errorf("failed to start: %s", backend.Reason(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		})
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop detection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd, func(ctx context.Context, client backend.Client, _ *event.Bus) error {
			msg, err := client.StopDetection(ctx)
			if err != nil {
				return fmt.Errorf("failed to stop: %s", backend.Reason(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		})
	},
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Backend debug helpers",
}

var debugToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Show or hide the backend's camera debug window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd, func(ctx context.Context, client backend.Client, _ *event.Bus) error {
			if err := client.ToggleDebugWindow(ctx); err != nil {
				return fmt.Errorf("failed to toggle debug window: %s", backend.Reason(err))
			}
			return nil
		})
	},
}

var screenshotsCmd = &cobra.Command{
	Use:   "screenshots",
	Short: "Open the folder holding trigger screenshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd, func(ctx context.Context, client backend.Client, _ *event.Bus) error {
			if err := client.OpenScreenshotsFolder(ctx); err != nil {
				return fmt.Errorf("failed to open screenshots folder: %s", backend.Reason(err))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(startCmd, stopCmd, debugCmd, screenshotsCmd)
	debugCmd.AddCommand(debugToggleCmd)
}

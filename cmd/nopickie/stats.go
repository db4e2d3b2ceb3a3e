package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/nopickie/nopickie/internal/backend"
	"github.com/nopickie/nopickie/internal/event"
	"github.com/nopickie/nopickie/internal/stats"
)

var statsOpts struct {
	format string
	offset int
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show trigger statistics",
	Long: `Show trigger statistics recorded by the backend.

Examples:
  # Triggers so far today
  nopickie stats today

  # This week, one line per day
  nopickie stats week

  # Two weeks ago as JSON
  nopickie stats week --offset -2 --format json`,
}

var statsTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's trigger count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validFormat(statsOpts.format); err != nil {
			return err
		}
		return withBackend(cmd, func(ctx context.Context, client backend.Client, _ *event.Bus) error {
			count, err := stats.NewView(client, logger).LoadToday(ctx)
			if err != nil {
				return errors.New(backend.Reason(err))
			}
			return writeToday(cmd.OutOrStdout(), statsOpts.format, count)
		})
	},
}

var statsWeekCmd = &cobra.Command{
	Use:   "week",
	Short: "Show per-day trigger counts for a week",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validFormat(statsOpts.format); err != nil {
			return err
		}
		return withBackend(cmd, func(ctx context.Context, client backend.Client, _ *event.Bus) error {
			view := stats.NewView(client, logger)
			if err := view.LoadWeek(ctx, statsOpts.offset); err != nil {
				return errors.New(backend.Reason(err))
			}
			if _, err := view.LoadToday(ctx); err != nil {
				logger.Warn("failed to load today's stats", "error", err)
			}
			return writeWeek(cmd.OutOrStdout(), statsOpts.format, view.Snapshot().Report())
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.AddCommand(statsTodayCmd, statsWeekCmd)

	statsCmd.PersistentFlags().StringVarP(&statsOpts.format, "format", "f", formatText,
		"Output format (text, json, yaml)")
	statsWeekCmd.Flags().IntVar(&statsOpts.offset, "offset", 0,
		"Week offset from the current week (0 = this week, -1 = last week)")
}

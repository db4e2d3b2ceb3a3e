package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nopickie/nopickie/internal/backend"
	"github.com/nopickie/nopickie/internal/event"
)

var eventsOpts struct {
	names []string
	json  bool
	start bool
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print backend events as they arrive",
	Long: `Print backend events until interrupted.

Examples:
  # Everything, one line per event
  nopickie events

  # Start detection and follow triggers as JSON lines
  nopickie events --start --name scratch_detected --json`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().StringSliceVarP(&eventsOpts.names, "name", "n", nil,
		"Only print these events (repeatable)")
	eventsCmd.Flags().BoolVar(&eventsOpts.json, "json", false,
		"Print one JSON object per line")
	eventsCmd.Flags().BoolVar(&eventsOpts.start, "start", false,
		"Start detection after subscribing")
}

func runEvents(cmd *cobra.Command, args []string) error {
	names := make([]event.Name, 0, len(eventsOpts.names))
	for _, n := range eventsOpts.names {
		name := event.Name(n)
		if !name.Known() && !name.Local() {
			return fmt.Errorf("unknown event %q", n)
		}
		names = append(names, name)
	}

	return withBackend(cmd, func(ctx context.Context, client backend.Client, bus *event.Bus) error {
		events := bus.Listen(ctx, names...)

		if eventsOpts.start {
			msg, err := client.StartDetection(ctx)
			if err != nil {
				return fmt.Errorf("failed to start: %s", backend.Reason(err))
			}
			logger.Info("detection started", "message", msg)
		}

		var done <-chan struct{}
		if lt, ok := client.(backend.Lifetime); ok {
			done = lt.Done()
		}

		out := cmd.OutOrStdout()
		for {
			select {
			case e, ok := <-events:
				if !ok {
					return nil
				}
				if err := writeEvent(out, e, eventsOpts.json); err != nil {
					return err
				}
			case <-done:
				if lt, ok := client.(backend.Lifetime); ok && lt.Err() != nil {
					return fmt.Errorf("backend connection lost: %w", lt.Err())
				}
				return nil
			}
		}
	})
}

// maxEventText caps the payload shown in text mode; debug frames carry images.
const maxEventText = 200

// writeEvent prints one event as a text line or a JSON object.
func writeEvent(w io.Writer, e event.Event, asJSON bool) error {
	payload := e.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	if asJSON {
		line, err := json.Marshal(struct {
			Event   event.Name      `json:"event"`
			At      time.Time       `json:"at"`
			Payload json.RawMessage `json:"payload"`
		}{e.Name, e.At, payload})
		if err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", line)
		return err
	}

	text := string(payload)
	if len(text) > maxEventText {
		text = text[:maxEventText] + "... (" + humanize.Bytes(uint64(len(payload))) + ")"
	}
	_, err := fmt.Fprintf(w, "%s %-28s %s\n", e.At.Format("15:04:05"), e.Name, text)
	return err
}

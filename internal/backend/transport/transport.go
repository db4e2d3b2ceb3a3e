// Package transport opens the backend.Client selected by the [backend] config.
package transport

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nopickie/nopickie/internal/backend"
	"github.com/nopickie/nopickie/internal/backend/dbus"
	"github.com/nopickie/nopickie/internal/backend/jsonl"
	"github.com/nopickie/nopickie/internal/config"
	"github.com/nopickie/nopickie/internal/event"
)

// Open connects to the backend. Events it emits are published on bus.
func Open(ctx context.Context, cfg *config.Config, bus *event.Bus, logger *slog.Logger) (backend.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Backend.Timeout.Duration()

	var (
		client backend.Client
		err    error
	)
	switch config.Transport(cfg.Backend.Transport) {
	case config.TransportProcess:
		var c *jsonl.Client
		c, err = jsonl.Spawn(ctx, jsonl.ProcessConfig{
			Command: cfg.Backend.Command,
			Dir:     cfg.Backend.Dir,
			Timeout: timeout,
		}, bus, logger)
		client = c

	case config.TransportSocket:
		var c *jsonl.Client
		c, err = jsonl.Dial(ctx, cfg.SocketPath(), timeout, bus, logger)
		client = c

	case config.TransportDBus:
		var c *dbus.Client
		c, err = dbus.Connect(bus, timeout, logger)
		client = c

	default:
		return nil, fmt.Errorf("unknown backend transport %q", cfg.Backend.Transport)
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("backend connected", "transport", cfg.Backend.Transport)
	return client, nil
}

// OwnsDetector reports whether a client opened with cfg talks to the detector
// directly. Only such a process records triggers; dbus clients reach the
// detector through whichever process exported it.
func OwnsDetector(cfg *config.Config) bool {
	switch config.Transport(cfg.Backend.Transport) {
	case config.TransportProcess, config.TransportSocket:
		return true
	default:
		return false
	}
}

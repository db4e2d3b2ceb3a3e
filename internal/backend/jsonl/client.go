package jsonl

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/nopickie/nopickie/internal/backend"
	"github.com/nopickie/nopickie/internal/event"
)

// DefaultTimeout bounds a command when the caller's context has no deadline.
const DefaultTimeout = 10 * time.Second

// Client implements backend.Client on top of a Conn.
type Client struct {
	conn    *Conn
	timeout time.Duration
}

var (
	_ backend.Client   = (*Client)(nil)
	_ backend.Lifetime = (*Client)(nil)
)

// NewClient wraps conn. A zero timeout selects DefaultTimeout.
func NewClient(conn *Conn, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{conn: conn, timeout: timeout}
}

// Dial connects to a backend listening on a unix socket.
func Dial(ctx context.Context, socketPath string, timeout time.Duration, bus *event.Bus, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var d net.Dialer
	nc, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to backend socket %s: %w", socketPath, err)
	}

	logger.Debug("connected to backend socket", "path", socketPath)
	conn := NewConn(nc, nc, nc, bus, logger.With("transport", "socket"))
	return NewClient(conn, timeout), nil
}

// Conn returns the underlying connection.
func (c *Client) Conn() *Conn {
	return c.conn
}

// Done is closed once the connection has shut down.
func (c *Client) Done() <-chan struct{} {
	return c.conn.Done()
}

// Err returns the error that ended the connection, if any.
func (c *Client) Err() error {
	return c.conn.Err()
}

func (c *Client) call(ctx context.Context, command string, args, out any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.conn.Call(ctx, command, args, out)
}

// StartDetection asks the backend to begin detection and returns its message.
func (c *Client) StartDetection(ctx context.Context) (string, error) {
	var msg string
	if err := c.call(ctx, backend.CmdStartDetection, nil, &msg); err != nil {
		return "", err
	}
	return msg, nil
}

// StopDetection asks the backend to end detection and returns its message.
func (c *Client) StopDetection(ctx context.Context) (string, error) {
	var msg string
	if err := c.call(ctx, backend.CmdStopDetection, nil, &msg); err != nil {
		return "", err
	}
	return msg, nil
}

func (c *Client) RecordTrigger(ctx context.Context) error {
	return c.call(ctx, backend.CmdRecordTrigger, nil, nil)
}

func (c *Client) TodayStats(ctx context.Context) (backend.TodayStats, error) {
	var s backend.TodayStats
	err := c.call(ctx, backend.CmdGetTodayStats, nil, &s)
	return s, err
}

func (c *Client) WeekStats(ctx context.Context, weekOffset int) (backend.WeekStats, error) {
	var s backend.WeekStats
	err := c.call(ctx, backend.CmdGetWeekStats, backend.WeekArgs{WeekOffset: weekOffset}, &s)
	return s, err
}

func (c *Client) ToggleDebugWindow(ctx context.Context) error {
	return c.call(ctx, backend.CmdToggleDebugWindow, nil, nil)
}

func (c *Client) OpenScreenshotsFolder(ctx context.Context) error {
	return c.call(ctx, backend.CmdOpenScreenshotsFolder, nil, nil)
}

// Close shuts the connection down.
func (c *Client) Close() error {
	return c.conn.Close()
}

package dbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/nopickie/nopickie/internal/backend"
	"github.com/nopickie/nopickie/internal/event"
)

// DefaultTimeout bounds a method call when the caller's context has no deadline.
const DefaultTimeout = 10 * time.Second

// Client implements backend.Client against io.nopickie.Backend on the session bus.
type Client struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	bus     *event.Bus
	logger  *slog.Logger
	timeout time.Duration

	signals chan *dbus.Signal

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	lostOnce sync.Once
	lostCh   chan struct{}
	lostErr  error
}

var (
	_ backend.Client   = (*Client)(nil)
	_ backend.Lifetime = (*Client)(nil)
)

// ErrBackendGone is reported by Err once the backend drops its bus name.
var ErrBackendGone = errors.New("backend left the session bus")

const (
	dbusInterface    = "org.freedesktop.DBus"
	nameOwnerChanged = dbusInterface + ".NameOwnerChanged"
)

// Connect joins the session bus and starts forwarding backend Event signals to bus.
func Connect(bus *event.Bus, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	var owned bool
	if err := conn.BusObject().Call(dbusInterface+".NameHasOwner", 0, BusName).Store(&owned); err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", BusName, err)
	}
	if !owned {
		return nil, fmt.Errorf("%s is not on the session bus (is nopickie bridge running?)", BusName)
	}
	return NewClient(conn, bus, timeout, logger)
}

// NewClient uses an existing connection. The connection is not closed by Close.
func NewClient(conn *dbus.Conn, bus *event.Bus, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		conn:    conn,
		obj:     conn.Object(BusName, ObjectPath),
		bus:     bus,
		logger:  logger.With("transport", "dbus"),
		timeout: timeout,
		signals: make(chan *dbus.Signal, 64),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		lostCh:  make(chan struct{}),
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(ObjectPath),
		dbus.WithMatchInterface(Interface),
		dbus.WithMatchMember(SignalEvent),
	); err != nil {
		return nil, fmt.Errorf("failed to subscribe to backend events: %w", err)
	}
	if err := conn.AddMatchSignal(ownerMatch()...); err != nil {
		c.logger.Warn("failed to watch backend name owner", "error", err)
	}
	conn.Signal(c.signals)

	c.running = true
	go c.forwardSignals()

	c.logger.Debug("listening for backend events", "path", ObjectPath)
	return c, nil
}

func (c *Client) forwardSignals() {
	defer close(c.doneCh)

	for {
		select {
		case <-c.stopCh:
			return
		case sig, ok := <-c.signals:
			if !ok {
				return
			}
			if sig.Name == nameOwnerChanged {
				if ownerGone(sig) {
					c.logger.Warn("backend left the session bus")
					c.lose(ErrBackendGone)
				}
				continue
			}
			if sig.Path != ObjectPath || sig.Name != Interface+"."+SignalEvent {
				continue
			}
			e, err := eventFromSignal(sig)
			if err != nil {
				c.logger.Warn("dropping backend signal", "error", err)
				continue
			}
			if c.bus != nil {
				c.bus.Publish(e)
			}
		}
	}
}

func ownerMatch() []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchSender(dbusInterface),
		dbus.WithMatchInterface(dbusInterface),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, BusName),
	}
}

// ownerGone reports whether sig says BusName lost its owner.
func ownerGone(sig *dbus.Signal) bool {
	if len(sig.Body) != 3 {
		return false
	}
	name, _ := sig.Body[0].(string)
	newOwner, ok := sig.Body[2].(string)
	return ok && name == BusName && newOwner == ""
}

func (c *Client) lose(err error) {
	c.lostOnce.Do(func() {
		c.mu.Lock()
		c.lostErr = err
		c.mu.Unlock()
		close(c.lostCh)
	})
}

// Done is closed when the backend leaves the bus or the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.lostCh
}

// Err returns ErrBackendGone after the backend left, nil after Close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lostErr
}

func (c *Client) call(ctx context.Context, method string, args ...any) *dbus.Call {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	c.logger.Debug("calling backend", "method", method)
	return c.obj.CallWithContext(ctx, Interface+"."+method, 0, args...)
}

func commandError(command string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &backend.CommandError{Command: command, Message: errorMessage(err), Cause: err}
}

func (c *Client) callString(ctx context.Context, command, method string, args ...any) (string, error) {
	call := c.call(ctx, method, args...)
	if call.Err != nil {
		return "", commandError(command, call.Err)
	}
	var out string
	if err := call.Store(&out); err != nil {
		return "", fmt.Errorf("failed to read %s reply: %w", command, err)
	}
	return out, nil
}

func (c *Client) callVoid(ctx context.Context, command, method string) error {
	if call := c.call(ctx, method); call.Err != nil {
		return commandError(command, call.Err)
	}
	return nil
}

func (c *Client) StartDetection(ctx context.Context) (string, error) {
	return c.callString(ctx, backend.CmdStartDetection, MethodStartDetection)
}

func (c *Client) StopDetection(ctx context.Context) (string, error) {
	return c.callString(ctx, backend.CmdStopDetection, MethodStopDetection)
}

func (c *Client) RecordTrigger(ctx context.Context) error {
	return c.callVoid(ctx, backend.CmdRecordTrigger, MethodRecordTrigger)
}

// TodayStats calls GetTodayStats, which replies with a JSON document.
func (c *Client) TodayStats(ctx context.Context) (backend.TodayStats, error) {
	var s backend.TodayStats
	raw, err := c.callString(ctx, backend.CmdGetTodayStats, MethodGetTodayStats)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return s, fmt.Errorf("failed to decode today stats: %w", err)
	}
	return s, nil
}

// WeekStats calls GetWeekStats(offset), which replies with a JSON document.
func (c *Client) WeekStats(ctx context.Context, weekOffset int) (backend.WeekStats, error) {
	var s backend.WeekStats
	raw, err := c.callString(ctx, backend.CmdGetWeekStats, MethodGetWeekStats, int32(weekOffset))
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return s, fmt.Errorf("failed to decode week stats: %w", err)
	}
	return s, nil
}

func (c *Client) ToggleDebugWindow(ctx context.Context) error {
	return c.callVoid(ctx, backend.CmdToggleDebugWindow, MethodToggleDebugWindow)
}

func (c *Client) OpenScreenshotsFolder(ctx context.Context) error {
	return c.callVoid(ctx, backend.CmdOpenScreenshotsFolder, MethodOpenScreenshotsFolder)
}

// Close stops signal forwarding. The shared session bus connection stays open.
func (c *Client) Close() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	c.mu.Unlock()

	c.conn.RemoveSignal(c.signals)
	close(c.stopCh)
	<-c.doneCh

	if err := c.conn.RemoveMatchSignal(
		dbus.WithMatchObjectPath(ObjectPath),
		dbus.WithMatchInterface(Interface),
		dbus.WithMatchMember(SignalEvent),
	); err != nil {
		c.logger.Debug("failed to remove signal match", "error", err)
	}
	_ = c.conn.RemoveMatchSignal(ownerMatch()...)
	c.lose(nil)
	return nil
}

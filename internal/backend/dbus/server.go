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
	"github.com/godbus/dbus/v5/introspect"

	"github.com/nopickie/nopickie/internal/backend"
	"github.com/nopickie/nopickie/internal/event"
)

// emitter sends a signal on the bus. *dbus.Conn satisfies it.
type emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...any) error
}

// Server exports a backend.Client as io.nopickie.Backend and re-emits every
// event published on the bus as an Event signal.
type Server struct {
	backend backend.Client
	events  *event.Bus
	logger  *slog.Logger
	timeout time.Duration

	mu          sync.Mutex
	conn        *dbus.Conn
	emit        emitter
	running     bool
	unsubscribe func()
}

// NewServer creates a bridge for b. Events published on events are forwarded
// as signals once Start succeeds.
func NewServer(b backend.Client, events *event.Bus, timeout time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Server{
		backend: b,
		events:  events,
		logger:  logger,
		timeout: timeout,
	}
}

// Start connects to the session bus, exports the backend object and claims BusName.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if err := conn.Export(&exported{server: s}, ObjectPath, Interface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: string(ObjectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: backendMethods(),
				Signals: backendSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ObjectPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", BusName)
	}

	s.mu.Lock()
	s.conn = conn
	s.running = true
	s.mu.Unlock()

	s.attach(conn)

	s.logger.Info("backend bridge started", "name", BusName, "path", ObjectPath)
	return nil
}

// attach starts forwarding bus events through e.
func (s *Server) attach(e emitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit = e
	if s.events != nil && s.unsubscribe == nil {
		s.unsubscribe = s.events.Subscribe(func(ev event.Event) {
			if err := s.EmitEvent(ev); err != nil {
				s.logger.Warn("failed to emit backend event", "event", ev.Name, "error", err)
			}
		})
	}
}

// Stop releases the bus name and stops forwarding events.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.emit = nil

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(BusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		// Don't close the connection as it's shared (SessionBus)
	}

	s.logger.Info("backend bridge stopped")
	return nil
}

// EmitEvent sends e as an Event(name, payload) signal.
func (s *Server) EmitEvent(e event.Event) error {
	s.mu.Lock()
	emit := s.emit
	s.mu.Unlock()

	if emit == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	payload := string(e.Payload)
	if payload == "" {
		payload = "{}"
	}
	if err := emit.Emit(ObjectPath, Interface+"."+SignalEvent, string(e.Name), payload); err != nil {
		return fmt.Errorf("failed to emit %s signal: %w", e.Name, err)
	}
	return nil
}

func (s *Server) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// exported carries the D-Bus method set so Start/Stop stay off the bus.
type exported struct {
	server *Server
}

func (x *exported) fail(command string, err error) *dbus.Error {
	x.server.logger.Debug("backend command failed", "command", command, "error", err)
	return dbus.MakeFailedError(errors.New(backend.Reason(err)))
}

// StartDetection implements io.nopickie.Backend.StartDetection() -> s
func (x *exported) StartDetection() (string, *dbus.Error) {
	ctx, cancel := x.server.context()
	defer cancel()
	msg, err := x.server.backend.StartDetection(ctx)
	if err != nil {
		return "", x.fail(backend.CmdStartDetection, err)
	}
	return msg, nil
}

// StopDetection implements io.nopickie.Backend.StopDetection() -> s
func (x *exported) StopDetection() (string, *dbus.Error) {
	ctx, cancel := x.server.context()
	defer cancel()
	msg, err := x.server.backend.StopDetection(ctx)
	if err != nil {
		return "", x.fail(backend.CmdStopDetection, err)
	}
	return msg, nil
}

func (x *exported) RecordTrigger() *dbus.Error {
	ctx, cancel := x.server.context()
	defer cancel()
	if err := x.server.backend.RecordTrigger(ctx); err != nil {
		return x.fail(backend.CmdRecordTrigger, err)
	}
	return nil
}

// GetTodayStats implements io.nopickie.Backend.GetTodayStats() -> s (JSON)
func (x *exported) GetTodayStats() (string, *dbus.Error) {
	ctx, cancel := x.server.context()
	defer cancel()
	stats, err := x.server.backend.TodayStats(ctx)
	if err != nil {
		return "", x.fail(backend.CmdGetTodayStats, err)
	}
	return x.encode(backend.CmdGetTodayStats, stats)
}

// GetWeekStats implements io.nopickie.Backend.GetWeekStats(i) -> s (JSON)
func (x *exported) GetWeekStats(weekOffset int32) (string, *dbus.Error) {
	ctx, cancel := x.server.context()
	defer cancel()
	stats, err := x.server.backend.WeekStats(ctx, int(weekOffset))
	if err != nil {
		return "", x.fail(backend.CmdGetWeekStats, err)
	}
	return x.encode(backend.CmdGetWeekStats, stats)
}

func (x *exported) ToggleDebugWindow() *dbus.Error {
	ctx, cancel := x.server.context()
	defer cancel()
	if err := x.server.backend.ToggleDebugWindow(ctx); err != nil {
		return x.fail(backend.CmdToggleDebugWindow, err)
	}
	return nil
}

func (x *exported) OpenScreenshotsFolder() *dbus.Error {
	ctx, cancel := x.server.context()
	defer cancel()
	if err := x.server.backend.OpenScreenshotsFolder(ctx); err != nil {
		return x.fail(backend.CmdOpenScreenshotsFolder, err)
	}
	return nil
}

func (x *exported) encode(command string, v any) (string, *dbus.Error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", x.fail(command, err)
	}
	return string(data), nil
}

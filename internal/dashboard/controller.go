package dashboard

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nopickie/nopickie/internal/backend"
	"github.com/nopickie/nopickie/internal/event"
)

// Events lists the backend events the dashboard reacts to.
var Events = []event.Name{
	event.Started,
	event.DetectorReady,
	event.CameraReady,
	event.StateChanged,
	event.ScratchDetected,
	event.Heartbeat,
	event.Error,
	event.CameraPermissionNeeded,
	event.Stopped,
	event.Cleanup,
	event.DetectionStartedFromMenu,
	event.DetectionStoppedFromMenu,
}

// Controller owns the dashboard UIState and its activity log.
// Command failures end up in the log and never reach the caller.
type Controller struct {
	backend backend.Client
	log     *Log
	logger  *slog.Logger

	mu    sync.Mutex
	state UIState
}

// NewController creates a controller. A nil log gets the default capacity.
func NewController(b backend.Client, log *Log, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if log == nil {
		log = NewLog(DefaultLogCapacity)
	}
	return &Controller{
		backend: b,
		log:     log,
		logger:  logger,
		state:   InitialState(),
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() UIState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Log returns the activity log.
func (c *Controller) Log() *Log {
	return c.log
}

// Welcome writes the greeting shown on an empty dashboard.
func (c *Controller) Welcome() {
	c.log.Add(LevelInfo, "NoPickie is ready, start detection to begin")
}

func (c *Controller) update(fn func(*UIState)) {
	c.mu.Lock()
	fn(&c.state)
	c.mu.Unlock()
}

// StartDetection asks the backend to start and marks the dashboard running on success.
func (c *Controller) StartDetection(ctx context.Context) {
	c.log.Add(LevelInfo, "Starting detector...")

	msg, err := c.backend.StartDetection(ctx)
	if err != nil {
		c.logger.Debug("start_detection failed", "error", err)
		c.log.Addf(LevelError, "Failed to start: %s", backend.Reason(err))
		return
	}

	c.log.Add(LevelSuccess, msg)
	c.update(func(s *UIState) { s.setRunning(true) })
}

// StopDetection asks the backend to stop and clears the state display on success.
func (c *Controller) StopDetection(ctx context.Context) {
	c.log.Add(LevelInfo, "Stopping detector...")

	msg, err := c.backend.StopDetection(ctx)
	if err != nil {
		c.logger.Debug("stop_detection failed", "error", err)
		c.log.Addf(LevelError, "Failed to stop: %s", backend.Reason(err))
		return
	}

	c.log.Add(LevelSuccess, msg)
	c.update(func(s *UIState) {
		s.setRunning(false)
		s.reset(BadgeStopped)
	})
}

// Subscribe registers HandleEvent for the dashboard's events on bus.
func (c *Controller) Subscribe(bus *event.Bus) (unsubscribe func()) {
	return bus.Subscribe(c.HandleEvent, Events...)
}

// HandleEvent applies one backend event to the state and log.
func (c *Controller) HandleEvent(e event.Event) {
	switch e.Name {
	case event.Started, event.DetectorReady, event.CameraReady:
		c.log.Add(LevelSuccess, c.message(e))

	case event.StateChanged:
		sc, err := event.Decode[event.StateChange](e)
		if err != nil {
			c.logger.Warn("bad state_changed payload", "error", err)
			return
		}
		c.update(func(s *UIState) {
			s.State = ParseDetectionState(sc.State)
			s.StateText = sc.State
			switch s.State {
			case StateNormal:
				s.Badge = BadgeNormal
			case StateWarning:
				s.Badge = BadgeWarning
			case StateDetected:
				s.Badge = BadgeDetected
			}
		})
		c.log.Addf(LevelInfo, "State changed: %s -> %s", sc.PreviousState, sc.State)

	case event.ScratchDetected:
		tr, err := event.Decode[event.Trigger](e)
		if err != nil {
			c.logger.Warn("bad scratch_detected payload", "error", err)
			return
		}
		c.update(func(s *UIState) {
			s.TriggerCount = tr.TriggerCount
			s.LastTrigger = &tr
		})
		c.log.Addf(LevelWarning, "Trigger detected! count: %d, duration: %gs, distance: %g",
			tr.TriggerCount, tr.Duration, tr.Distance)

	case event.Heartbeat:
		p, err := event.Decode[event.Pulse](e)
		if err != nil {
			c.logger.Debug("bad heartbeat payload", "error", err)
			return
		}
		c.update(func(s *UIState) {
			s.FrameCount = p.Frames
			s.TriggerCount = p.Triggers
			s.LastHeartbeat = e.At
		})

	case event.Error:
		c.log.Addf(LevelError, "Error: %s", c.message(e))

	case event.CameraPermissionNeeded:
		req, err := event.Decode[event.PermissionRequest](e)
		if err != nil {
			c.logger.Warn("bad camera_permission_needed payload", "error", err)
			req = event.PermissionRequest{Message: "Camera permission needed"}
		}
		c.log.Add(LevelWarning, req.Message)
		if req.Help != "" {
			c.log.Add(LevelInfo, req.Help)
		}
		c.update(func(s *UIState) {
			s.Running = false
			s.reset(BadgeNeedsPermission)
		})

	case event.Stopped:
		c.log.Add(LevelInfo, c.message(e))
		c.update(func(s *UIState) { s.setRunning(false) })

	case event.Cleanup:
		c.log.Add(LevelInfo, c.message(e))

	case event.DetectionStartedFromMenu:
		c.log.Add(LevelSuccess, "Detection started from menu")
		c.update(func(s *UIState) { s.setRunning(true) })

	case event.DetectionStoppedFromMenu:
		c.log.Add(LevelInfo, "Detection stopped from menu")
		c.update(func(s *UIState) {
			s.setRunning(false)
			s.reset(BadgeStopped)
		})

	default:
		c.logger.Debug("dashboard ignoring event", "event", e.Name)
	}
}

// message returns the payload message, or the event name when there is none.
func (c *Controller) message(e event.Event) string {
	m, err := event.Decode[event.Message](e)
	if err != nil || m.Message == "" {
		return string(e.Name)
	}
	return m.Message
}

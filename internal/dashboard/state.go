// Package dashboard mirrors backend detection state into an explicit UI state
// and forwards start/stop commands to the backend.
package dashboard

import (
	"time"

	"github.com/nopickie/nopickie/internal/event"
)

// DetectionState is the backend-reported detection state.
// The dashboard never changes it on its own.
type DetectionState int

const (
	StateUnknown DetectionState = iota
	StateNormal
	StateWarning
	StateDetected
)

// ParseDetectionState maps the wire name to a DetectionState.
func ParseDetectionState(s string) DetectionState {
	switch s {
	case "Normal":
		return StateNormal
	case "Warning":
		return StateWarning
	case "Detected":
		return StateDetected
	default:
		return StateUnknown
	}
}

func (s DetectionState) String() string {
	switch s {
	case StateNormal:
		return "Normal"
	case StateWarning:
		return "Warning"
	case StateDetected:
		return "Detected"
	default:
		return "unknown"
	}
}

// Badge is the summary indicator shown next to the controls.
type Badge int

const (
	BadgeStopped Badge = iota
	BadgeRunning
	BadgeNormal
	BadgeWarning
	BadgeDetected
	BadgeNeedsPermission
)

// Label returns the text shown in the badge.
func (b Badge) Label() string {
	switch b {
	case BadgeRunning:
		return "Running"
	case BadgeNormal:
		return "Normal"
	case BadgeWarning:
		return "Warning"
	case BadgeDetected:
		return "Detected!"
	case BadgeNeedsPermission:
		return "Permission needed"
	default:
		return "Stopped"
	}
}

// NoState is shown while no detection state is known.
const NoState = "-"

// UIState is everything the dashboard renders.
type UIState struct {
	Running       bool
	State         DetectionState
	StateText     string
	Badge         Badge
	TriggerCount  int
	FrameCount    int
	LastTrigger   *event.Trigger
	LastHeartbeat time.Time
}

// InitialState is the state before any command or event.
func InitialState() UIState {
	return UIState{StateText: NoState, Badge: BadgeStopped}
}

// CanStart reports whether the start control is enabled.
func (s UIState) CanStart() bool { return !s.Running }

// CanStop reports whether the stop control is enabled.
func (s UIState) CanStop() bool { return s.Running }

// setRunning updates the flag and the badge that follows it.
func (s *UIState) setRunning(running bool) {
	s.Running = running
	if running {
		s.Badge = BadgeRunning
	} else {
		s.Badge = BadgeStopped
	}
}

// reset clears the displayed detection state.
func (s *UIState) reset(badge Badge) {
	s.State = StateUnknown
	s.StateText = NoState
	s.Badge = badge
}

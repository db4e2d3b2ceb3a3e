// Package event defines the backend event vocabulary and a typed event bus.
package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Name identifies a backend event channel.
type Name string

// Backend event names. The string values are the wire names.
const (
	ShakeAlert               Name = "shake-alert"
	DebugFrame               Name = "debug_frame"
	Warning                  Name = "warning"
	ScratchDetected          Name = "scratch_detected"
	DetectionStartedFromMenu Name = "detection_started_from_menu"
	DetectionStoppedFromMenu Name = "detection_stopped_from_menu"
	Started                  Name = "started"
	DetectorReady            Name = "detector_ready"
	CameraReady              Name = "camera_ready"
	StateChanged             Name = "state_changed"
	Heartbeat                Name = "heartbeat"
	Error                    Name = "error"
	CameraPermissionNeeded   Name = "camera_permission_needed"
	Stopped                  Name = "stopped"
	Cleanup                  Name = "cleanup"
)

// TriggerRecorded is raised by nopickie itself once a detected trigger was
// stored by the backend. It is not part of the backend vocabulary.
const TriggerRecorded Name = "trigger_recorded"

// Names returns every known event name.
func Names() []Name {
	return []Name{
		ShakeAlert, DebugFrame, Warning, ScratchDetected,
		DetectionStartedFromMenu, DetectionStoppedFromMenu,
		Started, DetectorReady, CameraReady, StateChanged,
		Heartbeat, Error, CameraPermissionNeeded, Stopped, Cleanup,
	}
}

// Known reports whether n is part of the backend vocabulary.
func (n Name) Known() bool {
	for _, known := range Names() {
		if n == known {
			return true
		}
	}
	return false
}

// Local reports whether n is raised by nopickie rather than the backend.
func (n Name) Local() bool {
	return n == TriggerRecorded
}

// Event is a single fire-and-forget message from the backend.
// Payload holds the raw JSON body; use Decode to obtain a typed view.
type Event struct {
	Name    Name
	At      time.Time
	Payload json.RawMessage
}

// New builds an event with a JSON-encoded payload.
// A nil payload produces an empty object.
func New(name Name, payload any) (Event, error) {
	e := Event{Name: name, At: time.Now()}
	if payload == nil {
		e.Payload = json.RawMessage("{}")
		return e, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to encode %s payload: %w", name, err)
	}
	e.Payload = data
	return e, nil
}

// ErrEmptyPayload is returned by Decode when the event carries no body.
var ErrEmptyPayload = errors.New("event payload is empty")

// Decode unmarshals the event payload into T.
// Some emitters double-encode the body as a JSON string; that form is accepted too.
func Decode[T any](e Event) (T, error) {
	var v T
	raw := bytes.TrimSpace(e.Payload)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return v, ErrEmptyPayload
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return v, fmt.Errorf("failed to decode %s payload: %w", e.Name, err)
		}
		raw = []byte(inner)
	}

	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("failed to decode %s payload: %w", e.Name, err)
	}
	return v, nil
}

// Message is the payload of lifecycle announcements
// (started, detector_ready, camera_ready, stopped, cleanup) and error reports.
type Message struct {
	Message string `json:"message"`
}

// StateChange is the payload of state_changed.
type StateChange struct {
	State         string `json:"state"`
	PreviousState string `json:"previous_state"`
}

// Trigger is the payload of scratch_detected.
type Trigger struct {
	TriggerCount  int     `json:"trigger_count"`
	Duration      float64 `json:"duration"`
	Distance      float64 `json:"distance"`
	Screenshot    string  `json:"screenshot,omitempty"`
	ScreenshotDir string  `json:"screenshot_dir,omitempty"`
}

// Recorded is the payload of trigger_recorded. Today is nil when the
// refreshed count could not be loaded.
type Recorded struct {
	Today *int `json:"today"`
}

// Pulse is the payload of heartbeat.
type Pulse struct {
	State    string `json:"state"`
	Frames   int    `json:"frames"`
	Triggers int    `json:"triggers"`
}

// PermissionRequest is the payload of camera_permission_needed.
type PermissionRequest struct {
	Message string `json:"message"`
	Help    string `json:"help"`
}

// Frame is the payload of debug_frame. Count and Duration are optional.
type Frame struct {
	ImageB64 string   `json:"image_b64"`
	Status   string   `json:"status"`
	Count    *int     `json:"count,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
}

// timeLayouts covers RFC 3339 and Python's naive isoformat output.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// ParseTime parses a backend timestamp. Empty or unparseable values yield time.Now().
func ParseTime(s string) time.Time {
	if s == "" {
		return time.Now()
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Now()
}

// Timestamp returns the "timestamp" field of a raw payload, or time.Now().
func Timestamp(payload []byte) time.Time {
	var stamped struct {
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(payload, &stamped); err != nil {
		return time.Now()
	}
	return ParseTime(stamped.Timestamp)
}

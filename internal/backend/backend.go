// Package backend describes the command boundary to the external detection engine.
// Transports live in subpackages (jsonl, dbus); events arrive on an event.Bus.
package backend

import (
	"context"
	"errors"
	"fmt"
)

// Command names on the wire.
const (
	CmdStartDetection        = "start_detection"
	CmdStopDetection         = "stop_detection"
	CmdRecordTrigger         = "record_trigger"
	CmdGetTodayStats         = "get_today_stats"
	CmdGetWeekStats          = "get_week_stats"
	CmdToggleDebugWindow     = "toggle_debug_window"
	CmdOpenScreenshotsFolder = "open_screenshots_folder"
)

// Client issues request/response commands to the backend.
// Commands cannot be retracted once sent; ctx only bounds the wait for the reply.
type Client interface {
	StartDetection(ctx context.Context) (string, error)
	StopDetection(ctx context.Context) (string, error)
	RecordTrigger(ctx context.Context) error
	TodayStats(ctx context.Context) (TodayStats, error)
	WeekStats(ctx context.Context, weekOffset int) (WeekStats, error)
	ToggleDebugWindow(ctx context.Context) error
	OpenScreenshotsFolder(ctx context.Context) error
	Close() error
}

// Lifetime is implemented by clients whose connection can end on its own,
// such as a spawned backend process exiting.
type Lifetime interface {
	Done() <-chan struct{}
	Err() error
}

// TodayStats is the reply to get_today_stats.
type TodayStats struct {
	Date         string `json:"date,omitempty" yaml:"date,omitempty"`
	TriggerCount int    `json:"trigger_count" yaml:"trigger_count"`
}

// DayStats is one day of a week reply. TriggerCount is nil when the backend
// sent the day without a count.
type DayStats struct {
	Date         string `json:"date,omitempty" yaml:"date,omitempty"`
	TriggerCount *int   `json:"trigger_count,omitempty" yaml:"trigger_count,omitempty"`
}

// HasCount reports whether the day carries a real count.
func (d *DayStats) HasCount() bool {
	return d != nil && d.TriggerCount != nil
}

// WeekStats is the reply to get_week_stats. Days is ordered Monday first;
// a nil entry means no data for that day.
type WeekStats struct {
	WeekLabel string      `json:"week_label" yaml:"week_label"`
	WeekStart string      `json:"week_start" yaml:"week_start"`
	WeekEnd   string      `json:"week_end,omitempty" yaml:"week_end,omitempty"`
	Days      []*DayStats `json:"days" yaml:"days"`
	CanGoPrev bool        `json:"can_go_prev" yaml:"can_go_prev"`
	CanGoNext bool        `json:"can_go_next" yaml:"can_go_next"`
}

// WeekArgs is the argument object of get_week_stats.
type WeekArgs struct {
	WeekOffset int `json:"weekOffset"`
}

// ErrClosed is returned for commands issued after the transport shut down.
var ErrClosed = errors.New("backend connection closed")

// CommandError is a failure reported by the backend for a command.
type CommandError struct {
	Command string
	Message string
	Cause   error
}

func (e *CommandError) Error() string {
	if e.Message == "" && e.Cause != nil {
		return fmt.Sprintf("%s failed: %v", e.Command, e.Cause)
	}
	return fmt.Sprintf("%s failed: %s", e.Command, e.Message)
}

func (e *CommandError) Unwrap() error {
	return e.Cause
}

// Reason returns the backend's own message for a CommandError, or err's text otherwise.
func Reason(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Message != "" {
		return cmdErr.Message
	}
	return err.Error()
}

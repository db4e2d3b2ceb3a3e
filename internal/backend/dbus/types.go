// Package dbus carries the backend boundary over the session bus: a client for
// backends that export io.nopickie.Backend, and a bridge that exports any
// backend.Client under that name.
package dbus

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/nopickie/nopickie/internal/event"
)

const (
	// BusName is the well-known name the backend claims.
	BusName = "io.nopickie.Backend"
	// ObjectPath is the backend object path.
	ObjectPath dbus.ObjectPath = "/io/nopickie/Backend"
	// Interface is the backend interface name.
	Interface = "io.nopickie.Backend"
	// SignalEvent is the member name of the event signal: Event(name s, payload s).
	SignalEvent = "Event"
)

// Method names on Interface.
const (
	MethodStartDetection        = "StartDetection"
	MethodStopDetection         = "StopDetection"
	MethodRecordTrigger         = "RecordTrigger"
	MethodGetTodayStats         = "GetTodayStats"
	MethodGetWeekStats          = "GetWeekStats"
	MethodToggleDebugWindow     = "ToggleDebugWindow"
	MethodOpenScreenshotsFolder = "OpenScreenshotsFolder"
)

// ErrMalformedSignal is returned for Event signals whose body is not (ss).
var ErrMalformedSignal = errors.New("malformed backend event signal")

// eventFromSignal converts an Event signal into a bus event.
func eventFromSignal(sig *dbus.Signal) (event.Event, error) {
	if sig == nil || len(sig.Body) < 2 {
		return event.Event{}, ErrMalformedSignal
	}
	name, ok := sig.Body[0].(string)
	if !ok || name == "" {
		return event.Event{}, fmt.Errorf("%w: event name is %T", ErrMalformedSignal, sig.Body[0])
	}
	payload, ok := sig.Body[1].(string)
	if !ok {
		return event.Event{}, fmt.Errorf("%w: payload is %T", ErrMalformedSignal, sig.Body[1])
	}
	if payload == "" {
		payload = "{}"
	}
	return event.Event{
		Name:    event.Name(name),
		At:      event.Timestamp([]byte(payload)),
		Payload: []byte(payload),
	}, nil
}

// errorMessage extracts the human-readable part of a D-Bus error reply.
func errorMessage(err error) string {
	var dErr dbus.Error
	if errors.As(err, &dErr) {
		return messageFromBody(dErr)
	}
	var dErrPtr *dbus.Error
	if errors.As(err, &dErrPtr) && dErrPtr != nil {
		return messageFromBody(*dErrPtr)
	}
	return err.Error()
}

func messageFromBody(e dbus.Error) string {
	if len(e.Body) > 0 {
		if msg, ok := e.Body[0].(string); ok && msg != "" {
			return msg
		}
	}
	return e.Name
}

func backendMethods() []introspect.Method {
	stringOut := []introspect.Arg{{Name: "message", Type: "s", Direction: "out"}}
	statsOut := []introspect.Arg{{Name: "stats_json", Type: "s", Direction: "out"}}
	return []introspect.Method{
		{Name: MethodStartDetection, Args: stringOut},
		{Name: MethodStopDetection, Args: stringOut},
		{Name: MethodRecordTrigger},
		{Name: MethodGetTodayStats, Args: statsOut},
		{
			Name: MethodGetWeekStats,
			Args: []introspect.Arg{
				{Name: "week_offset", Type: "i", Direction: "in"},
				{Name: "stats_json", Type: "s", Direction: "out"},
			},
		},
		{Name: MethodToggleDebugWindow},
		{Name: MethodOpenScreenshotsFolder},
	}
}

func backendSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: SignalEvent,
			Args: []introspect.Arg{
				{Name: "name", Type: "s"},
				{Name: "payload", Type: "s"},
			},
		},
	}
}

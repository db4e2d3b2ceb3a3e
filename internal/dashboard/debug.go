package dashboard

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"sync"
	"time"

	"github.com/nopickie/nopickie/internal/event"
)

// DebugStatus is the indicator of the debug view.
type DebugStatus int

const (
	DebugNormal DebugStatus = iota
	DebugWarning
	DebugDetected
)

// ParseDebugStatus maps a frame status or event name to a DebugStatus.
// Anything unrecognised reads as normal.
func ParseDebugStatus(s string) DebugStatus {
	switch s {
	case "warning":
		return DebugWarning
	case "detected", string(event.ScratchDetected):
		return DebugDetected
	default:
		return DebugNormal
	}
}

func (s DebugStatus) String() string {
	switch s {
	case DebugWarning:
		return "WARNING"
	case DebugDetected:
		return "DETECTED"
	default:
		return "NORMAL"
	}
}

// DebugEvents lists the events the debug view reacts to.
var DebugEvents = []event.Name{event.DebugFrame, event.Warning, event.ScratchDetected}

// DebugSnapshot is what the debug view renders.
type DebugSnapshot struct {
	Status     DebugStatus
	Count      *int
	Duration   *float64
	Frames     uint64
	FrameBytes int
	Width      int
	Height     int
	Format     string
	UpdatedAt  time.Time
}

// DebugView mirrors the backend's debug frames. Count and duration keep their
// last value when a frame omits them.
type DebugView struct {
	logger *slog.Logger

	mu   sync.Mutex
	snap DebugSnapshot
}

// NewDebugView creates an empty view.
func NewDebugView(logger *slog.Logger) *DebugView {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugView{logger: logger}
}

// Snapshot returns a copy of the current view.
func (v *DebugView) Snapshot() DebugSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap
}

// Subscribe registers HandleEvent for DebugEvents on bus.
func (v *DebugView) Subscribe(bus *event.Bus) (unsubscribe func()) {
	return bus.Subscribe(v.HandleEvent, DebugEvents...)
}

// HandleEvent applies a debug_frame, warning or scratch_detected event.
func (v *DebugView) HandleEvent(e event.Event) {
	switch e.Name {
	case event.Warning, event.ScratchDetected:
		v.mu.Lock()
		v.snap.Status = ParseDebugStatus(string(e.Name))
		v.mu.Unlock()

	case event.DebugFrame:
		f, err := event.Decode[event.Frame](e)
		if err != nil {
			v.logger.Warn("debug_frame parse error", "error", err)
			return
		}
		v.applyFrame(f, e.At)
	}
}

func (v *DebugView) applyFrame(f event.Frame, at time.Time) {
	var (
		size          int
		width, height int
		format        string
		haveImage     bool
	)
	if f.ImageB64 != "" {
		data, err := base64.StdEncoding.DecodeString(f.ImageB64)
		if err != nil {
			v.logger.Debug("debug frame image is not base64", "error", err)
		} else {
			haveImage = true
			size = len(data)
			if cfg, name, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
				width, height, format = cfg.Width, cfg.Height, name
			} else {
				v.logger.Debug("unrecognised debug frame image", "error", err)
			}
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if haveImage {
		v.snap.Frames++
		v.snap.FrameBytes = size
		v.snap.Width, v.snap.Height, v.snap.Format = width, height, format
	}
	if f.Status != "" {
		v.snap.Status = ParseDebugStatus(f.Status)
	}
	if f.Count != nil {
		n := *f.Count
		v.snap.Count = &n
	}
	if f.Duration != nil {
		d := *f.Duration
		v.snap.Duration = &d
	}
	v.snap.UpdatedAt = at
}

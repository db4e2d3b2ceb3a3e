package daemon

import (
	"log/slog"

	"github.com/nopickie/nopickie/internal/event"
)

// Alerter is the popup side of an alert. *alert.Controller satisfies it.
type Alerter interface {
	Alert()
	Shake()
}

// Sound plays the alert sound. *audio.Alerter satisfies it.
type Sound interface {
	Play() error
}

// AlertEvents lists the backend events the dispatcher reacts to.
var AlertEvents = []event.Name{event.ScratchDetected, event.ShakeAlert}

// Dispatcher turns backend events into alerts. A trigger shows the popup
// (or shakes it when already visible) and plays the sound; shake-alert
// only re-plays the animation.
type Dispatcher struct {
	alerts  Alerter
	sound   Sound
	notices *InternalNotifier
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher. sound and notices may be nil.
func NewDispatcher(alerts Alerter, sound Sound, notices *InternalNotifier, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{alerts: alerts, sound: sound, notices: notices, logger: logger}
}

// Subscribe registers HandleEvent for AlertEvents on bus.
func (d *Dispatcher) Subscribe(bus *event.Bus) (unsubscribe func()) {
	return bus.Subscribe(d.HandleEvent, AlertEvents...)
}

// HandleEvent applies one backend event.
func (d *Dispatcher) HandleEvent(e event.Event) {
	switch e.Name {
	case event.ScratchDetected:
		d.logger.Debug("trigger detected, alerting")
		d.alerts.Alert()
		d.playSound()

	case event.ShakeAlert:
		d.alerts.Shake()
	}
}

func (d *Dispatcher) playSound() {
	if d.sound == nil {
		return
	}
	if err := d.sound.Play(); err != nil {
		d.logger.Warn("failed to play alert sound", "error", err)
		if d.notices != nil {
			d.notices.NotifyAudioError(err)
		}
	}
}

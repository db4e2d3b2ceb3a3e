package daemon

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nopickie/nopickie/internal/event"
	"github.com/nopickie/nopickie/internal/notify"
)

type fakeAlerts struct {
	alerts, shakes int
}

func (f *fakeAlerts) Alert() { f.alerts++ }
func (f *fakeAlerts) Shake() { f.shakes++ }

type fakeSound struct {
	plays int
	err   error
}

func (f *fakeSound) Play() error {
	f.plays++
	return f.err
}

type fakeSender struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (f *fakeSender) Notify(n notify.Notification) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.sent = append(f.sent, n)
	return uint32(len(f.sent)), nil
}

func TestDispatcher_TriggerAlertsAndPlays(t *testing.T) {
	alerts, sound := &fakeAlerts{}, &fakeSound{}
	d := NewDispatcher(alerts, sound, nil, nil)

	d.HandleEvent(event.Event{Name: event.ScratchDetected, Payload: []byte(`{"trigger_count":1}`)})
	d.HandleEvent(event.Event{Name: event.ScratchDetected})

	assert.Equal(t, 2, alerts.alerts)
	assert.Equal(t, 0, alerts.shakes)
	assert.Equal(t, 2, sound.plays)
}

func TestDispatcher_ShakeAlertOnlyShakes(t *testing.T) {
	alerts, sound := &fakeAlerts{}, &fakeSound{}
	d := NewDispatcher(alerts, sound, nil, nil)

	d.HandleEvent(event.Event{Name: event.ShakeAlert})

	assert.Equal(t, 0, alerts.alerts)
	assert.Equal(t, 1, alerts.shakes)
	assert.Equal(t, 0, sound.plays)
}

func TestDispatcher_IgnoresOtherEvents(t *testing.T) {
	alerts := &fakeAlerts{}
	d := NewDispatcher(alerts, nil, nil, nil)

	d.HandleEvent(event.Event{Name: event.Heartbeat})
	d.HandleEvent(event.Event{Name: event.Warning})

	assert.Equal(t, &fakeAlerts{}, alerts)
}

func TestDispatcher_SoundFailureNotifies(t *testing.T) {
	sender := &fakeSender{}
	notices := NewInternalNotifier(sender, nil)
	d := NewDispatcher(&fakeAlerts{}, &fakeSound{err: errors.New("no speaker")}, notices, nil)

	d.HandleEvent(event.Event{Name: event.ScratchDetected})
	d.HandleEvent(event.Event{Name: event.ScratchDetected})

	require.Len(t, sender.sent, 1, "repeat is rate limited")
	assert.Contains(t, sender.sent[0].Body, "no speaker")
}

func TestDispatcher_Subscribe(t *testing.T) {
	bus := event.NewBus(nil)
	alerts := &fakeAlerts{}
	d := NewDispatcher(alerts, nil, nil, nil)

	unsubscribe := d.Subscribe(bus)
	bus.Publish(event.Event{Name: event.ScratchDetected})
	bus.Publish(event.Event{Name: event.ShakeAlert})
	bus.Publish(event.Event{Name: event.Stopped})
	unsubscribe()
	bus.Publish(event.Event{Name: event.ScratchDetected})

	assert.Equal(t, 1, alerts.alerts)
	assert.Equal(t, 1, alerts.shakes)
}

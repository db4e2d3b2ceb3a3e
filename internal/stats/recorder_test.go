package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nopickie/nopickie/internal/backend"
	"github.com/nopickie/nopickie/internal/backend/backendtest"
	"github.com/nopickie/nopickie/internal/event"
)

func scratch(t *testing.T) event.Event {
	t.Helper()
	e, err := event.New(event.ScratchDetected, event.Trigger{TriggerCount: 1, Duration: 1.5, Distance: 0.02})
	require.NoError(t, err)
	return e
}

func TestRecorder_OneRecordPerTrigger(t *testing.T) {
	fake := backendtest.New()
	fake.SetToday(4)
	bus := event.NewBus(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	recorded := bus.Listen(ctx, event.TriggerRecorded)

	r := NewRecorder(fake, bus, time.Second, nil)
	r.Start()
	defer r.Stop()

	for i := 0; i < 3; i++ {
		bus.Publish(scratch(t))
	}

	for i := 0; i < 3; i++ {
		select {
		case e := <-recorded:
			payload, err := event.Decode[event.Recorded](e)
			require.NoError(t, err)
			require.NotNil(t, payload.Today)
			assert.Equal(t, 4, *payload.Today)
		case <-time.After(2 * time.Second):
			t.Fatalf("trigger_recorded %d not published", i+1)
		}
	}
	assert.Equal(t, 3, fake.Count(backend.CmdRecordTrigger))
}

func TestRecorder_IgnoresOtherEvents(t *testing.T) {
	fake := backendtest.New()
	bus := event.NewBus(nil)

	r := NewRecorder(fake, bus, 0, nil)
	r.Start()

	for _, name := range []event.Name{event.Started, event.TriggerRecorded, event.Heartbeat} {
		e, err := event.New(name, nil)
		require.NoError(t, err)
		bus.Publish(e)
	}
	bus.Publish(scratch(t))

	require.Eventually(t, func() bool {
		return fake.Count(backend.CmdGetTodayStats) == 1
	}, 2*time.Second, 10*time.Millisecond)
	r.Stop()

	assert.Equal(t, 1, fake.Count(backend.CmdRecordTrigger))
}

func TestRecorder_FailedRecordIsNotAnnounced(t *testing.T) {
	fake := backendtest.New()
	fake.RecordErrs = []error{errors.New("busy"), errors.New("still busy")}
	bus := event.NewBus(nil)

	var announced int
	bus.Subscribe(func(event.Event) { announced++ }, event.TriggerRecorded)

	r := NewRecorder(fake, bus, 0, nil)
	r.Start()
	bus.Publish(scratch(t))

	require.Eventually(t, func() bool {
		return fake.Count(backend.CmdGetTodayStats) == 1
	}, 2*time.Second, 10*time.Millisecond)
	r.Stop()

	assert.Equal(t, 2, fake.Count(backend.CmdRecordTrigger))
	assert.Zero(t, announced)
}

func TestRecorder_StopIsIdempotent(t *testing.T) {
	fake := backendtest.New()
	bus := event.NewBus(nil)

	r := NewRecorder(fake, bus, 0, nil)
	r.Start()
	r.Start()
	assert.Equal(t, 1, bus.SubscriberCount())

	r.Stop()
	r.Stop()
	assert.Zero(t, bus.SubscriberCount())

	bus.Publish(scratch(t))
	assert.Zero(t, fake.Count(backend.CmdRecordTrigger))
}

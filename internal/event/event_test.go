package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    StateChange
		wantErr bool
	}{
		{"object", `{"state":"Warning","previous_state":"Normal"}`, StateChange{State: "Warning", PreviousState: "Normal"}, false},
		{"double_encoded", `"{\"state\":\"Detected\",\"previous_state\":\"Warning\"}"`, StateChange{State: "Detected", PreviousState: "Warning"}, false},
		{"extra_fields", `{"event":"state_changed","timestamp":"2025-01-01T10:00:00","state":"Normal"}`, StateChange{State: "Normal"}, false},
		{"empty", ``, StateChange{}, true},
		{"null", `null`, StateChange{}, true},
		{"garbage", `{not json`, StateChange{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode[StateChange](Event{Name: StateChanged, Payload: []byte(tt.payload)})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_OptionalFrameFields(t *testing.T) {
	e := Event{Name: DebugFrame, Payload: []byte(`{"status":"warning"}`)}
	f, err := Decode[Frame](e)
	require.NoError(t, err)
	assert.Equal(t, "warning", f.Status)
	assert.Nil(t, f.Count)
	assert.Nil(t, f.Duration)
}

func TestNew(t *testing.T) {
	e, err := New(Heartbeat, Pulse{State: "Normal", Frames: 10, Triggers: 2})
	require.NoError(t, err)
	assert.Equal(t, Heartbeat, e.Name)
	assert.False(t, e.At.IsZero())

	p, err := Decode[Pulse](e)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Frames)

	empty, err := New(ShakeAlert, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(empty.Payload))
}

func TestName_Known(t *testing.T) {
	assert.True(t, StateChanged.Known())
	assert.True(t, ShakeAlert.Known())
	assert.False(t, Name("status_update").Known())
	assert.Len(t, Names(), 15)

	assert.False(t, TriggerRecorded.Known())
	assert.True(t, TriggerRecorded.Local())
	assert.False(t, ScratchDetected.Local())
}

func TestBus_SubscribeByName(t *testing.T) {
	bus := NewBus(nil)

	var got []Name
	bus.Subscribe(func(e Event) { got = append(got, e.Name) }, Started, Stopped)

	bus.Publish(Event{Name: Started})
	bus.Publish(Event{Name: Heartbeat})
	bus.Publish(Event{Name: Stopped})

	assert.Equal(t, []Name{Started, Stopped}, got)
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus(nil)

	count := 0
	bus.Subscribe(func(Event) { count++ })

	for _, n := range Names() {
		bus.Publish(Event{Name: n})
	}
	assert.Equal(t, len(Names()), count)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)

	count := 0
	unsubscribe := bus.Subscribe(func(Event) { count++ }, Heartbeat)
	bus.Publish(Event{Name: Heartbeat})
	unsubscribe()
	unsubscribe()
	bus.Publish(Event{Name: Heartbeat})

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestBus_PanickingHandlerIsIsolated(t *testing.T) {
	bus := NewBus(nil)

	delivered := false
	bus.Subscribe(func(Event) { panic("boom") }, Error)
	bus.Subscribe(func(Event) { delivered = true }, Error)

	assert.NotPanics(t, func() { bus.Publish(Event{Name: Error}) })
	assert.True(t, delivered)
}

func TestBus_Listen(t *testing.T) {
	bus := NewBus(nil)
	ctx, cancel := context.WithCancel(context.Background())

	ch := bus.Listen(ctx, ScratchDetected)
	bus.Publish(Event{Name: Heartbeat})
	bus.Publish(Event{Name: ScratchDetected})

	select {
	case e := <-ch:
		assert.Equal(t, ScratchDetected, e.Name)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after cancel")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	count := 0
	bus.Subscribe(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(Event{Name: Heartbeat})
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, count)
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-01-06T10:15:00Z", time.Date(2025, 1, 6, 10, 15, 0, 0, time.UTC)},
		{"2025-01-06T10:15:00", time.Date(2025, 1, 6, 10, 15, 0, 0, time.Local)},
		{"2025-01-06T10:15:00.5", time.Date(2025, 1, 6, 10, 15, 0, 500_000_000, time.Local)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseTime(tt.in)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}

	before := time.Now()
	assert.False(t, ParseTime("yesterday").Before(before))
}

func TestTimestamp(t *testing.T) {
	got := Timestamp([]byte(`{"event":"heartbeat","timestamp":"2025-03-02T08:00:00"}`))
	assert.Equal(t, 2025, got.Year())
	assert.Equal(t, time.March, got.Month())

	before := time.Now()
	assert.False(t, Timestamp([]byte(`not json`)).Before(before))
}

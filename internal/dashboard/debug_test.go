package dashboard

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nopickie/nopickie/internal/event"
)

func pngBase64(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDebugView_Frame(t *testing.T) {
	v := NewDebugView(nil)
	count := 2
	duration := 1.25

	v.HandleEvent(mustEvent(t, event.DebugFrame, event.Frame{
		ImageB64: pngBase64(t, 64, 48),
		Status:   "warning",
		Count:    &count,
		Duration: &duration,
	}))

	s := v.Snapshot()
	assert.Equal(t, DebugWarning, s.Status)
	assert.Equal(t, uint64(1), s.Frames)
	assert.Equal(t, 64, s.Width)
	assert.Equal(t, 48, s.Height)
	assert.Equal(t, "png", s.Format)
	assert.Positive(t, s.FrameBytes)
	require.NotNil(t, s.Count)
	assert.Equal(t, 2, *s.Count)
	require.NotNil(t, s.Duration)
	assert.InDelta(t, 1.25, *s.Duration, 1e-9)
}

func TestDebugView_OptionalFieldsKeepLastValue(t *testing.T) {
	v := NewDebugView(nil)
	count := 5

	v.HandleEvent(mustEvent(t, event.DebugFrame, event.Frame{Status: "detected", Count: &count}))
	v.HandleEvent(mustEvent(t, event.DebugFrame, event.Frame{Status: "normal"}))

	s := v.Snapshot()
	assert.Equal(t, DebugNormal, s.Status)
	require.NotNil(t, s.Count)
	assert.Equal(t, 5, *s.Count)
	assert.Nil(t, s.Duration)
	assert.Equal(t, uint64(0), s.Frames)
}

func TestDebugView_StringPayload(t *testing.T) {
	v := NewDebugView(nil)
	v.HandleEvent(event.Event{Name: event.DebugFrame, Payload: []byte(`"{\"status\":\"detected\",\"count\":1}"`)})

	s := v.Snapshot()
	assert.Equal(t, DebugDetected, s.Status)
	require.NotNil(t, s.Count)
	assert.Equal(t, 1, *s.Count)
}

func TestDebugView_StatusFallbacks(t *testing.T) {
	v := NewDebugView(nil)
	bus := event.NewBus(nil)
	defer v.Subscribe(bus)()

	bus.Publish(event.Event{Name: event.Warning})
	assert.Equal(t, DebugWarning, v.Snapshot().Status)

	bus.Publish(mustEvent(t, event.ScratchDetected, event.Trigger{TriggerCount: 1}))
	assert.Equal(t, DebugDetected, v.Snapshot().Status)
}

func TestDebugView_BadImageStillUpdatesStatus(t *testing.T) {
	v := NewDebugView(nil)
	v.HandleEvent(mustEvent(t, event.DebugFrame, event.Frame{ImageB64: "%%%", Status: "warning"}))

	s := v.Snapshot()
	assert.Equal(t, DebugWarning, s.Status)
	assert.Equal(t, uint64(0), s.Frames)
}

func TestParseDebugStatus(t *testing.T) {
	assert.Equal(t, DebugWarning, ParseDebugStatus("warning"))
	assert.Equal(t, DebugDetected, ParseDebugStatus("detected"))
	assert.Equal(t, DebugDetected, ParseDebugStatus("scratch_detected"))
	assert.Equal(t, DebugNormal, ParseDebugStatus("whatever"))
	assert.Equal(t, "DETECTED", DebugDetected.String())
}

package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nopickie/nopickie/internal/event"
	"github.com/nopickie/nopickie/internal/stats"
)

func intPtr(n int) *int { return &n }

func testReport() stats.Report {
	return stats.Report{
		Today:     nil,
		WeekLabel: "this week",
		WeekStart: "2025-01-06",
		WeekEnd:   "2025-01-12",
		Total:     1234,
		Days: []stats.DayReport{
			{Date: "2025-01-06", Day: "Mon", TriggerCount: intPtr(1200)},
			{Date: "2025-01-07", Day: "Tue", TriggerCount: intPtr(34)},
			{Date: "2025-01-08", Day: "Wed"},
		},
	}
}

func TestValidFormat(t *testing.T) {
	for _, f := range []string{formatText, formatJSON, formatYAML} {
		assert.NoError(t, validFormat(f))
	}
	assert.Error(t, validFormat("csv"))
}

func TestWriteToday(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeToday(&buf, formatText, 1))
	assert.Equal(t, "Today: 1 trigger\n", buf.String())

	buf.Reset()
	require.NoError(t, writeToday(&buf, formatText, 1500))
	assert.Equal(t, "Today: 1,500 triggers\n", buf.String())

	buf.Reset()
	require.NoError(t, writeToday(&buf, formatJSON, 3))
	assert.JSONEq(t, `{"trigger_count": 3}`, buf.String())
}

func TestWriteWeek_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeWeek(&buf, formatText, testReport()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "this week (2025-01-06 to 2025-01-12)", lines[0])
	assert.Contains(t, lines[1], "1,200")
	assert.True(t, strings.HasSuffix(lines[3], "-"), "day without data: %q", lines[3])
	assert.Equal(t, "Total: 1,234", lines[4])
}

func TestWriteWeek_Structured(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeWeek(&buf, formatJSON, testReport()))

	var decoded struct {
		Today *int `json:"today"`
		Days  []struct {
			TriggerCount *int `json:"trigger_count"`
		} `json:"days"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Nil(t, decoded.Today)
	require.Len(t, decoded.Days, 3)
	assert.Nil(t, decoded.Days[2].TriggerCount)

	buf.Reset()
	require.NoError(t, writeWeek(&buf, formatYAML, testReport()))
	assert.Contains(t, buf.String(), "week_label: this week")
	assert.Contains(t, buf.String(), "trigger_count: null")
}

func TestWriteEvent(t *testing.T) {
	at := time.Date(2025, 1, 8, 14, 3, 9, 0, time.UTC)
	e := event.Event{Name: event.StateChanged, At: at, Payload: json.RawMessage(`{"state":"warning"}`)}

	var buf bytes.Buffer
	require.NoError(t, writeEvent(&buf, e, false))
	assert.True(t, strings.HasPrefix(buf.String(), "14:03:09 state_changed"))
	assert.Contains(t, buf.String(), `{"state":"warning"}`)

	buf.Reset()
	require.NoError(t, writeEvent(&buf, e, true))
	assert.JSONEq(t, `{"event":"state_changed","at":"2025-01-08T14:03:09Z","payload":{"state":"warning"}}`, buf.String())
}

func TestWriteEvent_EmptyAndLargePayloads(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEvent(&buf, event.Event{Name: event.Stopped}, true))
	assert.Contains(t, buf.String(), `"payload":{}`)

	big := `{"image_b64":"` + strings.Repeat("A", 4096) + `"}`
	buf.Reset()
	require.NoError(t, writeEvent(&buf, event.Event{Name: event.DebugFrame, Payload: json.RawMessage(big)}, false))
	assert.Less(t, buf.Len(), 300)
	assert.Contains(t, buf.String(), "kB)")
}

package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nopickie/nopickie/internal/dashboard"
	"github.com/nopickie/nopickie/internal/stats"
)

func intPtr(n int) *int { return &n }

func TestRenderChart(t *testing.T) {
	c := &stats.Chart{
		Labels: []string{"Mon", "Tue", "Wed", "Thu"},
		Dates:  []string{"2025-01-06", "2025-01-07", "2025-01-08", "2025-01-09"},
		Values: []*int{intPtr(10), intPtr(5), nil, intPtr(0)},
	}

	lines := strings.Split(renderChart(c, 32), "\n")
	require.Len(t, lines, 4)

	assert.Equal(t, 20, strings.Count(lines[0], "█"))
	assert.Equal(t, 10, strings.Count(lines[1], "█"))
	assert.True(t, strings.HasSuffix(lines[1], " 5"))
	assert.Contains(t, lines[2], "no data")
	assert.Zero(t, strings.Count(lines[2], "█"), "gap is never a bar")
	assert.Zero(t, strings.Count(lines[3], "█"))
	assert.True(t, strings.HasSuffix(lines[3], " 0"))
}

func TestRenderChart_SmallValuesStayVisible(t *testing.T) {
	c := &stats.Chart{
		Labels: []string{"Mon", "Tue"},
		Values: []*int{intPtr(1000), intPtr(1)},
	}
	lines := strings.Split(renderChart(c, 0), "\n")
	assert.Equal(t, 40, strings.Count(lines[0], "█"))
	assert.Equal(t, 1, strings.Count(lines[1], "█"))
}

func TestRenderChart_Empty(t *testing.T) {
	assert.Contains(t, renderChart(nil, 80), "No days")
	assert.Contains(t, renderChart(&stats.Chart{}, 80), "No days")
}

func TestBuildKeybindBar(t *testing.T) {
	full := buildKeybindBar(0, ModeDashboard)
	assert.Contains(t, full, "screenshots")

	narrow := buildKeybindBar(20, ModeDashboard)
	assert.Contains(t, narrow, "quit")
	assert.NotContains(t, narrow, "help")
	assert.LessOrEqual(t, lipgloss.Width(narrow), 20)

	assert.Contains(t, buildKeybindBar(0, ModeStats), "week")
	assert.Contains(t, buildKeybindBar(0, ModeDebug), "camera window")
}

func TestFormatLog_OldestFirst(t *testing.T) {
	at := time.Date(2025, 1, 8, 9, 30, 0, 0, time.UTC)
	entries := []dashboard.Entry{
		{Seq: 2, At: at.Add(time.Second), Level: dashboard.LevelSuccess, Message: "Detection started"},
		{Seq: 1, At: at, Level: dashboard.LevelInfo, Message: "Starting detector..."},
	}

	got := formatLog(entries)
	assert.Equal(t,
		"2025-01-08 09:30:00 [info] Starting detector...\n"+
			"2025-01-08 09:30:01 [success] Detection started\n",
		got)
}

func TestFormatReport(t *testing.T) {
	s := stats.Snapshot{
		Today:       2,
		TodayLoaded: true,
		WeekLabel:   "this week",
		Chart: &stats.Chart{
			Labels: []string{"Mon", "Tue"},
			Dates:  []string{"2025-01-06", "2025-01-07"},
			Values: []*int{intPtr(3), nil},
		},
	}

	out, err := formatReport(s)
	require.NoError(t, err)
	assert.Contains(t, out, "today: 2")
	assert.Contains(t, out, "week_label: this week")
	assert.Contains(t, out, "total: 3")
	assert.Contains(t, out, "trigger_count: null")
}

func TestDetectClipboardCommand_Configured(t *testing.T) {
	assert.Equal(t, "cat", detectClipboardCommand("cat"))
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "Dashboard", ModeDashboard.String())
	assert.Equal(t, "Statistics", ModeStats.String())
	assert.Equal(t, "Debug", ModeDebug.String())
}

package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nopickie/nopickie/internal/backend"
	"github.com/nopickie/nopickie/internal/backend/backendtest"
	"github.com/nopickie/nopickie/internal/config"
	"github.com/nopickie/nopickie/internal/dashboard"
	"github.com/nopickie/nopickie/internal/event"
)

func newTestModel(t *testing.T, mutate func(*config.Config)) (Model, *backendtest.Fake, *event.Bus) {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	fake := backendtest.New()
	bus := event.NewBus(nil)
	m := New(context.Background(), Options{Config: cfg, Backend: fake, Bus: bus})
	t.Cleanup(m.Close)
	return m, fake, bus
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func TestModel_WelcomeInLog(t *testing.T) {
	m, _, _ := newTestModel(t, nil)
	entries := m.controller.Log().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, dashboard.LevelInfo, entries[0].Level)
}

func TestModel_StartStop(t *testing.T) {
	m, fake, _ := newTestModel(t, nil)

	m, cmd := update(t, m, keyRunes("s"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.True(t, m.controller.Snapshot().Running)
	assert.Equal(t, 1, fake.Count(backend.CmdStartDetection))

	// Start is disabled while running
	m, cmd = update(t, m, keyRunes("s"))
	assert.Nil(t, cmd)

	m, cmd = update(t, m, keyRunes("x"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.False(t, m.controller.Snapshot().Running)
	assert.Equal(t, 1, fake.Count(backend.CmdStopDetection))
	assert.Equal(t, 1, fake.Count(backend.CmdStartDetection))
}

func TestModel_StartIgnoredWhileInFlight(t *testing.T) {
	m, fake, _ := newTestModel(t, nil)

	m, first := update(t, m, keyRunes("s"))
	require.NotNil(t, first)
	m, second := update(t, m, keyRunes("s"))
	assert.Nil(t, second, "first start has not answered yet")
	m, stop := update(t, m, keyRunes("x"))
	assert.Nil(t, stop)

	m, _ = update(t, m, first())
	assert.Equal(t, 1, fake.Count(backend.CmdStartDetection))
	assert.True(t, m.controller.Snapshot().Running)

	m, cmd := update(t, m, keyRunes("x"))
	require.NotNil(t, cmd, "stop is available once start has answered")
	m, _ = update(t, m, cmd())
	assert.False(t, m.controller.Snapshot().Running)
	assert.Equal(t, 1, fake.Count(backend.CmdStopDetection))
}

func TestModel_StopDisabledWhenStopped(t *testing.T) {
	m, fake, _ := newTestModel(t, nil)
	_, cmd := update(t, m, keyRunes("x"))
	assert.Nil(t, cmd)
	assert.Empty(t, fake.Calls())
}

func TestModel_ViewCycle(t *testing.T) {
	tab := tea.KeyMsg{Type: tea.KeyTab}

	m, _, _ := newTestModel(t, nil)
	m, _ = update(t, m, tab)
	assert.Equal(t, ModeStats, m.mode)
	m, _ = update(t, m, tab)
	assert.Equal(t, ModeDashboard, m.mode)
	m, _ = update(t, m, keyRunes("3"))
	assert.Equal(t, ModeDashboard, m.mode, "debug view hidden")

	m, _, _ = newTestModel(t, func(c *config.Config) { c.TUI.ShowDebug = true })
	m, _ = update(t, m, tab)
	m, _ = update(t, m, tab)
	assert.Equal(t, ModeDebug, m.mode)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, ModeStats, m.mode)
}

func TestModel_HelpReturnsToPreviousView(t *testing.T) {
	m, _, _ := newTestModel(t, nil)
	m, _ = update(t, m, keyRunes("2"))
	m, _ = update(t, m, keyRunes("?"))
	assert.Equal(t, ModeHelp, m.mode)

	// Keys other than back are swallowed in help
	m, cmd := update(t, m, keyRunes("s"))
	assert.Nil(t, cmd)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeStats, m.mode)
}

func TestModel_WeekNavigationIsGated(t *testing.T) {
	m, fake, _ := newTestModel(t, nil)
	fake.Weeks[0] = backend.WeekStats{WeekLabel: "this week", WeekStart: "2025-01-06", Days: backendtest.Counts(1, 2, 3, 4, 5, 6, 7), CanGoPrev: true}
	fake.Weeks[-1] = backend.WeekStats{WeekLabel: "last week", WeekStart: "2024-12-30", Days: backendtest.Counts(1, 1, 1, 1, 1, 1, 1), CanGoNext: true}

	m, _ = update(t, m, m.loadWeek(0)())
	m, _ = update(t, m, keyRunes("2"))

	m, cmd := update(t, m, keyRunes("l"))
	assert.Nil(t, cmd, "no newer week")

	m, cmd = update(t, m, keyRunes("h"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Equal(t, []int{0, -1}, fake.WeekOffsets())
	assert.Equal(t, "last week", m.stats.Snapshot().WeekLabel)

	_, cmd = update(t, m, keyRunes("h"))
	assert.Nil(t, cmd, "backend said no older week")
}

func TestModel_ScratchEventDoesNotRecord(t *testing.T) {
	m, fake, bus := newTestModel(t, nil)

	e, err := event.New(event.ScratchDetected, event.Trigger{TriggerCount: 3, Duration: 1.5, Distance: 0.08})
	require.NoError(t, err)
	bus.Publish(e)

	msg := m.waitForEvent()()
	em, ok := msg.(eventMsg)
	require.True(t, ok)
	assert.Equal(t, event.ScratchDetected, em.event.Name)

	m, cmd := update(t, m, msg)
	require.NotNil(t, cmd, "keeps listening")
	assert.Equal(t, 3, m.controller.Snapshot().TriggerCount)
	assert.Zero(t, fake.Count(backend.CmdRecordTrigger), "recording belongs to the detector's owner")
}

func TestModel_TriggerRecordedRefreshesToday(t *testing.T) {
	m, fake, bus := newTestModel(t, nil)
	fake.SetToday(5)

	today := 5
	e, err := event.New(event.TriggerRecorded, event.Recorded{Today: &today})
	require.NoError(t, err)
	bus.Publish(e)

	m, cmd := update(t, m, m.waitForEvent()())
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	require.Len(t, batch, 2)

	// The first command waits for the next event
	m, _ = update(t, m, batch[1]())
	assert.Equal(t, 1, fake.Count(backend.CmdGetTodayStats))
	assert.Equal(t, 5, m.stats.Snapshot().Today)
	assert.Zero(t, fake.Count(backend.CmdRecordTrigger))
}

func TestModel_ActionFailureShowsReason(t *testing.T) {
	m, fake, _ := newTestModel(t, nil)
	fake.DebugErr = &backend.CommandError{Command: backend.CmdToggleDebugWindow, Message: "debug window unavailable"}

	m, cmd := update(t, m, keyRunes("d"))
	require.NotNil(t, cmd)
	m, cmd = update(t, m, cmd())
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.True(t, m.statusErr)
	assert.Contains(t, m.statusMsg, "debug window unavailable")

	m, _ = update(t, m, clearStatusMsg{})
	assert.Empty(t, m.statusMsg)
}

func TestModel_StatsErrorShowsStatus(t *testing.T) {
	m, fake, _ := newTestModel(t, nil)
	fake.TodayErr = &backend.CommandError{Command: backend.CmdGetTodayStats, Message: "database locked"}

	m, cmd := update(t, m, m.loadToday()())
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Contains(t, m.statusMsg, "database locked")
}

func TestModel_View(t *testing.T) {
	m, _, _ := newTestModel(t, nil)
	assert.Equal(t, "Initializing...", m.View())

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	view := m.View()
	assert.Contains(t, view, "NoPickie")
	assert.Contains(t, view, "Start")
	assert.Contains(t, view, "Stopped")
	assert.Contains(t, view, "Activity (1/50)")

	m, _ = update(t, m, keyRunes("2"))
	assert.Contains(t, m.View(), "No week loaded")

	m, _ = update(t, m, keyRunes("?"))
	assert.Contains(t, m.View(), "Keyboard Shortcuts")
}

func TestModel_ViewDebug(t *testing.T) {
	m, _, bus := newTestModel(t, func(c *config.Config) { c.TUI.ShowDebug = true })
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})

	count := 4
	e, err := event.New(event.DebugFrame, event.Frame{Status: "warning", Count: &count})
	require.NoError(t, err)
	bus.Publish(e)

	m, _ = update(t, m, keyRunes("3"))
	view := m.View()
	assert.Contains(t, view, "WARNING")
	assert.True(t, strings.Contains(view, "Count:") && strings.Contains(view, "4"))
}

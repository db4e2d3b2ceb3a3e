package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nopickie/nopickie/internal/event"
	"github.com/nopickie/nopickie/internal/stats"
)

// eventMsg carries a backend event into the update loop. The dashboard and
// debug views have already applied it.
type eventMsg struct {
	event event.Event
}

type eventsClosedMsg struct{}

// commandDoneMsg follows a start or stop command; the outcome is in the log.
type commandDoneMsg struct{}

type statsLoadedMsg struct {
	err error
}

type actionResultMsg struct {
	action string
	err    error
}

type tickMsg time.Time

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type copyResultMsg struct {
	err error
}

func setStatus(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// commandContext bounds one backend call by the configured timeout.
func (m Model) commandContext() (context.Context, context.CancelFunc) {
	timeout := m.cfg.Backend.Timeout.Duration()
	if timeout <= 0 {
		return context.WithCancel(m.ctx)
	}
	return context.WithTimeout(m.ctx, timeout)
}

// waitForEvent blocks until the next backend event.
func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{event: e}
	}
}

func (m Model) tick() tea.Cmd {
	interval := m.cfg.TUI.RefreshInterval.Duration()
	if interval <= 0 {
		return nil
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) startDetection() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.commandContext()
		defer cancel()
		m.controller.StartDetection(ctx)
		return commandDoneMsg{}
	}
}

func (m Model) stopDetection() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.commandContext()
		defer cancel()
		m.controller.StopDetection(ctx)
		return commandDoneMsg{}
	}
}

func (m Model) loadToday() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.commandContext()
		defer cancel()
		_, err := m.stats.LoadToday(ctx)
		return statsLoadedMsg{err: err}
	}
}

func (m Model) loadWeek(offset int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.commandContext()
		defer cancel()
		return statsLoadedMsg{err: m.stats.LoadWeek(ctx, offset)}
	}
}

// reloadWeek reloads the latest requested week, which may still be in flight.
func (m Model) reloadWeek() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.commandContext()
		defer cancel()
		return statsLoadedMsg{err: m.stats.Reload(ctx)}
	}
}

func (m Model) switchWeek(direction stats.Direction) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.commandContext()
		defer cancel()
		return statsLoadedMsg{err: m.stats.SwitchWeek(ctx, direction)}
	}
}

func (m Model) runAction(name string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.commandContext()
		defer cancel()
		return actionResultMsg{action: name, err: fn(ctx)}
	}
}

func (m Model) copyToClipboard(text string) tea.Cmd {
	command := m.cfg.TUI.ClipboardCommand
	return func() tea.Msg {
		return copyResultMsg{err: copyText(text, command)}
	}
}

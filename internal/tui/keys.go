package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the key bindings for the TUI.
type KeyMap struct {
	// Detection
	Start key.Binding
	Stop  key.Binding

	// Views
	NextView  key.Binding
	PrevView  key.Binding
	Dashboard key.Binding
	Stats     key.Binding
	Debug     key.Binding

	// Statistics
	PrevWeek key.Binding
	NextWeek key.Binding
	Refresh  key.Binding

	// Backend extras
	DebugWindow key.Binding
	Screenshots key.Binding

	// Clipboard
	CopyLog   key.Binding
	CopyStats key.Binding

	// Log scrolling
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Global
	Back key.Binding
	Quit key.Binding
	Help key.Binding
}

// ShortHelp returns a short help message.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.NextView, k.Help, k.Quit}
}

// FullHelp returns a full help message.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Stop, k.DebugWindow, k.Screenshots},
		{k.NextView, k.Dashboard, k.Stats, k.Debug},
		{k.PrevWeek, k.NextWeek, k.Refresh, k.CopyStats},
		{k.Up, k.Down, k.PageUp, k.PageDown, k.CopyLog},
		{k.Back, k.Help, k.Quit},
	}
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Start: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start detection"),
		),
		Stop: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop detection"),
		),
		NextView: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next view"),
		),
		PrevView: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous view"),
		),
		Dashboard: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "dashboard"),
		),
		Stats: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "statistics"),
		),
		Debug: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "debug"),
		),
		PrevWeek: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous week"),
		),
		NextWeek: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next week"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh stats"),
		),
		DebugWindow: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "toggle debug window"),
		),
		Screenshots: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open screenshots"),
		),
		CopyLog: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy log"),
		),
		CopyStats: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy week as YAML"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdn", "page down"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// Package tui provides the BubbleTea-based dashboard and statistics interface.
package tui

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nopickie/nopickie/internal/backend"
	"github.com/nopickie/nopickie/internal/config"
	"github.com/nopickie/nopickie/internal/dashboard"
	"github.com/nopickie/nopickie/internal/event"
	"github.com/nopickie/nopickie/internal/stats"
)

// Mode is the view currently on screen.
type Mode int

const (
	ModeDashboard Mode = iota
	ModeStats
	ModeDebug
	ModeHelp
)

func (m Mode) String() string {
	switch m {
	case ModeStats:
		return "Statistics"
	case ModeDebug:
		return "Debug"
	case ModeHelp:
		return "Help"
	default:
		return "Dashboard"
	}
}

// headerHeight is the number of dashboard lines above the activity log.
const headerHeight = 9

// Options wires the TUI to its collaborators.
type Options struct {
	Config  *config.Config
	Backend backend.Client
	Bus     *event.Bus
	Logger  *slog.Logger
}

// Model is the main TUI model.
type Model struct {
	cfg    *config.Config
	logger *slog.Logger
	ctx    context.Context

	backend    backend.Client
	controller *dashboard.Controller
	stats      *stats.View
	debug      *dashboard.DebugView

	events  <-chan event.Event
	cleanup []func()

	mode     Mode
	lastMode Mode

	viewport viewport.Model
	help     help.Model
	keys     KeyMap

	width  int
	height int
	ready  bool

	statusMsg string
	statusErr bool

	// commandPending is set while a start or stop command is in flight.
	commandPending bool
}

// New creates the model and subscribes its views to opts.Bus. Call Close
// once the program has exited.
func New(ctx context.Context, opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bus := opts.Bus
	if bus == nil {
		bus = event.NewBus(logger)
	}

	ctx, cancel := context.WithCancel(ctx)

	controller := dashboard.NewController(opts.Backend, dashboard.NewLog(cfg.TUI.LogCapacity), logger)
	debug := dashboard.NewDebugView(logger)

	m := Model{
		cfg:        cfg,
		logger:     logger,
		ctx:        ctx,
		backend:    opts.Backend,
		controller: controller,
		stats:      stats.NewView(opts.Backend, logger),
		debug:      debug,
		viewport:   viewport.New(0, 0),
		help:       help.New(),
		keys:       DefaultKeyMap(),
	}

	// Registered before Listen so the views are updated by the time the
	// model sees the event.
	m.cleanup = append(m.cleanup, controller.Subscribe(bus), debug.Subscribe(bus), cancel)
	m.events = bus.Listen(ctx)

	controller.Welcome()
	m.refreshLog()
	return m
}

// Close removes the bus subscriptions.
func (m Model) Close() {
	for _, fn := range m.cleanup {
		fn()
	}
}

// Init loads the statistics and starts listening for backend events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadToday(),
		m.loadWeek(0),
		m.waitForEvent(),
		m.tick(),
	)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-headerHeight-2, 3)
		m.help.Width = msg.Width
		return m, nil

	case eventMsg:
		m.refreshLog()
		cmds := []tea.Cmd{m.waitForEvent()}
		if msg.event.Name == event.TriggerRecorded {
			cmds = append(cmds, m.loadToday())
		}
		return m, tea.Batch(cmds...)

	case eventsClosedMsg:
		m.logger.Debug("event stream closed")
		return m, nil

	case commandDoneMsg:
		m.commandPending = false
		m.refreshLog()
		return m, nil

	case statsLoadedMsg:
		if msg.err != nil {
			m.logger.Warn("statistics request failed", "error", msg.err)
			return m, setStatus("Statistics: "+backend.Reason(msg.err), true)
		}
		return m, nil

	case actionResultMsg:
		if msg.err != nil {
			return m, setStatus(msg.action+" failed: "+backend.Reason(msg.err), true)
		}
		return m, setStatus(msg.action+" done", false)

	case tickMsg:
		return m, tea.Batch(m.loadToday(), m.reloadWeek(), m.tick())

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, setStatus("Copy failed: "+msg.err.Error(), true)
		}
		return m, setStatus("Copied to clipboard", false)
	}

	if m.mode == ModeDashboard {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = m.lastMode
		} else {
			m.lastMode = m.mode
			m.mode = ModeHelp
		}
		return m, nil
	}

	if m.mode == ModeHelp {
		if key.Matches(msg, m.keys.Back) {
			m.mode = m.lastMode
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Start):
		if m.commandPending || !m.controller.Snapshot().CanStart() {
			return m, nil
		}
		m.commandPending = true
		return m, m.startDetection()

	case key.Matches(msg, m.keys.Stop):
		if m.commandPending || !m.controller.Snapshot().CanStop() {
			return m, nil
		}
		m.commandPending = true
		return m, m.stopDetection()

	case key.Matches(msg, m.keys.NextView):
		m.mode = m.cycle(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevView):
		m.mode = m.cycle(-1)
		return m, nil

	case key.Matches(msg, m.keys.Dashboard):
		m.mode = ModeDashboard
		return m, nil

	case key.Matches(msg, m.keys.Stats):
		m.mode = ModeStats
		return m, nil

	case key.Matches(msg, m.keys.Debug):
		if m.cfg.TUI.ShowDebug {
			m.mode = ModeDebug
		}
		return m, nil

	case key.Matches(msg, m.keys.DebugWindow):
		return m, m.runAction("Toggle debug window", m.backend.ToggleDebugWindow)

	case key.Matches(msg, m.keys.Screenshots):
		return m, m.runAction("Open screenshots folder", m.backend.OpenScreenshotsFolder)

	case key.Matches(msg, m.keys.CopyLog):
		return m, m.copyToClipboard(formatLog(m.controller.Log().Entries()))
	}

	if m.mode == ModeStats {
		return m.handleStatsKey(msg)
	}

	if m.mode == ModeDashboard {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleStatsKey handles keys in the statistics view.
func (m Model) handleStatsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.PrevWeek):
		if !m.stats.PrevEnabled() {
			return m, nil
		}
		return m, m.switchWeek(stats.Prev)

	case key.Matches(msg, m.keys.NextWeek):
		if !m.stats.NextEnabled() {
			return m, nil
		}
		return m, m.switchWeek(stats.Next)

	case key.Matches(msg, m.keys.Refresh):
		return m, tea.Batch(m.loadToday(), m.reloadWeek())

	case key.Matches(msg, m.keys.CopyStats):
		text, err := formatReport(m.stats.Snapshot())
		if err != nil {
			return m, setStatus(err.Error(), true)
		}
		return m, m.copyToClipboard(text)
	}
	return m, nil
}

// cycle returns the view step positions away, skipping debug when hidden.
func (m Model) cycle(step int) Mode {
	views := []Mode{ModeDashboard, ModeStats}
	if m.cfg.TUI.ShowDebug {
		views = append(views, ModeDebug)
	}
	for i, v := range views {
		if v == m.mode {
			return views[(i+step+len(views))%len(views)]
		}
	}
	return ModeDashboard
}

// refreshLog re-renders the activity log into the viewport.
func (m *Model) refreshLog() {
	m.viewport.SetContent(renderLog(m.controller.Log().Entries()))
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nopickie/nopickie/internal/dashboard"
	"github.com/nopickie/nopickie/internal/stats"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	tabStyle    = lipgloss.NewStyle().Padding(0, 1)
	activeTab   = tabStyle.Bold(true).Reverse(true)
)

func levelStyle(l dashboard.Level) lipgloss.Style {
	switch l {
	case dashboard.LevelSuccess:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	case dashboard.LevelWarning:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	case dashboard.LevelError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func badgeStyle(b dashboard.Badge) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch b {
	case dashboard.BadgeRunning, dashboard.BadgeNormal:
		return base.Background(lipgloss.Color("2")).Foreground(lipgloss.Color("0"))
	case dashboard.BadgeWarning:
		return base.Background(lipgloss.Color("3")).Foreground(lipgloss.Color("0"))
	case dashboard.BadgeDetected, dashboard.BadgeNeedsPermission:
		return base.Background(lipgloss.Color("1")).Foreground(lipgloss.Color("15"))
	default:
		return base.Background(lipgloss.Color("8")).Foreground(lipgloss.Color("15"))
	}
}

func debugStatusStyle(s dashboard.DebugStatus) lipgloss.Style {
	switch s {
	case dashboard.DebugWarning:
		return badgeStyle(dashboard.BadgeWarning)
	case dashboard.DebugDetected:
		return badgeStyle(dashboard.BadgeDetected)
	default:
		return badgeStyle(dashboard.BadgeNormal)
	}
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var body string
	switch m.mode {
	case ModeStats:
		body = m.viewStats()
	case ModeDebug:
		body = m.viewDebug()
	case ModeHelp:
		return m.viewHelp()
	default:
		body = m.viewDashboard()
	}

	return m.viewTabs() + "\n" + body + "\n" + m.viewFooter()
}

func (m Model) viewTabs() string {
	modes := []Mode{ModeDashboard, ModeStats}
	if m.cfg.TUI.ShowDebug {
		modes = append(modes, ModeDebug)
	}
	tabs := make([]string, 0, len(modes))
	for i, mode := range modes {
		label := fmt.Sprintf("%d %s", i+1, mode)
		if mode == m.mode {
			tabs = append(tabs, activeTab.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewFooter() string {
	if m.statusMsg != "" {
		if m.statusErr {
			return errorStyle.Render(m.statusMsg)
		}
		return statusStyle.Render(m.statusMsg)
	}
	if !m.cfg.TUI.ShowHelp {
		return ""
	}
	return buildKeybindBar(m.width, m.mode)
}

func (m Model) viewDashboard() string {
	s := m.controller.Snapshot()
	today := m.stats.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render("NoPickie") + "  " + badgeStyle(s.Badge).Render(s.Badge.Label()) + "\n\n")

	b.WriteString(control("s", "Start", !m.commandPending && s.CanStart()) + "  " + control("x", "Stop", !m.commandPending && s.CanStop()) + "\n\n")

	b.WriteString(labelStyle.Render("State:     ") + s.StateText + "\n")
	b.WriteString(labelStyle.Render("Triggers:  ") + humanize.Comma(int64(s.TriggerCount)))
	if today.TodayLoaded {
		b.WriteString(labelStyle.Render("  today: ") + humanize.Comma(int64(today.Today)))
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Frames:    ") + humanize.Comma(int64(s.FrameCount)))
	if !s.LastHeartbeat.IsZero() {
		b.WriteString(labelStyle.Render("  heartbeat ") + humanize.Time(s.LastHeartbeat))
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Last:      "))
	if tr := s.LastTrigger; tr != nil {
		fmt.Fprintf(&b, "%.1fs, distance %.2f", tr.Duration, tr.Distance)
	} else {
		b.WriteString(dashboard.NoState)
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render(fmt.Sprintf("Activity (%d/%d)", m.controller.Log().Len(), m.controller.Log().Cap())) + "\n")
	b.WriteString(m.viewport.View())
	return b.String()
}

// control renders a start/stop control, dimmed when disabled.
func control(k, label string, enabled bool) string {
	if !enabled {
		return dimStyle.Render("[" + k + "] " + label)
	}
	return keyStyle.Render("["+k+"]") + " " + label
}

func (m Model) viewStats() string {
	s := m.stats.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Statistics") + "\n\n")

	b.WriteString(labelStyle.Render("Today: "))
	if s.TodayLoaded {
		b.WriteString(humanize.Comma(int64(s.Today)) + " triggers")
	} else {
		b.WriteString(dashboard.NoState)
	}
	b.WriteString("\n\n")

	if s.Chart == nil {
		b.WriteString(dimStyle.Render("No week loaded"))
		return b.String()
	}

	prev := dimStyle.Render("‹ h")
	if s.PrevEnabled {
		prev = keyStyle.Render("‹ h")
	}
	next := dimStyle.Render("l ›")
	if s.NextEnabled {
		next = keyStyle.Render("l ›")
	}
	week := s.WeekLabel
	if s.WeekStart != "" {
		week += labelStyle.Render(fmt.Sprintf("  %s to %s", s.WeekStart, s.WeekEnd))
	}
	b.WriteString(prev + "  " + week + "  " + next + "\n\n")

	b.WriteString(renderChart(s.Chart, m.width))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s", labelStyle.Render("Total:"), humanize.Comma(int64(s.Chart.Total())))
	if gaps := s.Chart.Gaps(); gaps > 0 {
		b.WriteString(labelStyle.Render(fmt.Sprintf("  (%d %s without data)", gaps, plural(gaps, "day", "days"))))
	}
	return b.String()
}

func (m Model) viewDebug() string {
	s := m.debug.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Debug") + "  " + debugStatusStyle(s.Status).Render(s.Status.String()) + "\n\n")

	b.WriteString(labelStyle.Render("Count:     "))
	if s.Count != nil {
		b.WriteString(humanize.Comma(int64(*s.Count)))
	} else {
		b.WriteString(dashboard.NoState)
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Duration:  "))
	if s.Duration != nil {
		fmt.Fprintf(&b, "%.2fs", *s.Duration)
	} else {
		b.WriteString(dashboard.NoState)
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Frames:    ") + humanize.Comma(int64(s.Frames)))
	if s.FrameBytes > 0 {
		b.WriteString(labelStyle.Render("  last ") + humanize.Bytes(uint64(s.FrameBytes)))
		if s.Format != "" {
			fmt.Fprintf(&b, " %s %dx%d", s.Format, s.Width, s.Height)
		}
	}
	b.WriteString("\n")

	if !s.UpdatedAt.IsZero() {
		b.WriteString(labelStyle.Render("Updated:   ") + humanize.Time(s.UpdatedAt) + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("Press d to toggle the backend's camera window"))
	return b.String()
}

func (m Model) viewHelp() string {
	m.help.ShowAll = true
	return titleStyle.Render("Keyboard Shortcuts") + "\n\n" +
		m.help.View(m.keys) + "\n\n" +
		dimStyle.Render("Press ? or esc to return")
}

// renderLog renders log entries newest first.
func renderLog(entries []dashboard.Entry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s %s %s",
			labelStyle.Render(e.At.Format("15:04:05")),
			levelStyle(e.Level).Render(fmt.Sprintf("%-7s", e.Level)),
			e.Message))
	}
	return strings.Join(lines, "\n")
}

// chartLabelWidth covers the day label and the count column.
const chartLabelWidth = 12

// renderChart draws one horizontal bar per day. A day without data is drawn as
// a break, never as an empty bar.
func renderChart(c *stats.Chart, width int) string {
	if c.Len() == 0 {
		return dimStyle.Render("No days returned")
	}

	barWidth := width - chartLabelWidth
	if barWidth < 10 || width <= 0 {
		barWidth = 40
	}
	top := c.Max()

	lines := make([]string, 0, c.Len())
	for i, v := range c.Values {
		label := fmt.Sprintf("%-4s", c.Labels[i])
		if v == nil {
			lines = append(lines, label+" "+dimStyle.Render("╌ no data"))
			continue
		}
		n := 0
		if top > 0 {
			n = *v * barWidth / top
		}
		if *v > 0 && n == 0 {
			n = 1
		}
		lines = append(lines, fmt.Sprintf("%s %s %d", label, barStyle.Render(strings.Repeat("█", n)), *v))
	}
	return strings.Join(lines, "\n")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// keybind represents a single keybind with priority for the status bar.
type keybind struct {
	key      string
	desc     string
	priority int // lower = more important (shown first)
}

// buildKeybindBar builds a keybind bar that fits within the given width.
func buildKeybindBar(width int, mode Mode) string {
	var binds []keybind

	switch mode {
	case ModeStats:
		binds = []keybind{
			{"q", "quit", 1},
			{"h/l", "week", 2},
			{"tab", "view", 3},
			{"r", "refresh", 4},
			{"y", "copy", 5},
			{"?", "help", 6},
		}
	case ModeDebug:
		binds = []keybind{
			{"q", "quit", 1},
			{"d", "camera window", 2},
			{"tab", "view", 3},
			{"?", "help", 4},
		}
	default:
		binds = []keybind{
			{"q", "quit", 1},
			{"s", "start", 2},
			{"x", "stop", 3},
			{"tab", "view", 4},
			{"?", "help", 5},
			{"j/k", "scroll", 6},
			{"c", "copy log", 7},
			{"o", "screenshots", 8},
		}
	}

	const separator = "  "
	result := ""
	for _, b := range binds {
		item := keyStyle.Render(b.key) + " " + b.desc
		testLen := lipgloss.Width(b.key + " " + b.desc)
		if result != "" {
			testLen += lipgloss.Width(result) + len(separator)
		}

		if width > 0 && testLen > width {
			break
		}
		if result != "" {
			result += separator
		}
		result += item
	}

	return labelStyle.Render(result)
}

package notify

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/nopickie/nopickie/internal/alert"
	"github.com/nopickie/nopickie/internal/config"
)

const (
	dbusNotifyDest      = "org.freedesktop.Notifications"
	dbusNotifyPath      = dbus.ObjectPath("/org/freedesktop/Notifications")
	dbusNotifyInterface = "org.freedesktop.Notifications"

	appName      = "NoPickie"
	desktopEntry = "nopickie"
	alertIcon    = "dialog-warning"
)

var _ alert.Surface = (*Notifier)(nil)

// caller is the part of dbus.BusObject the notifier uses.
type caller interface {
	Call(method string, flags dbus.Flags, args ...any) *dbus.Call
}

// Notifier shows the alert as a desktop notification. It never lets the
// server expire the notification: the alert controller owns dismissal.
// Shaking re-sends the notification in place.
type Notifier struct {
	conn   *dbus.Conn
	obj    caller
	logger *slog.Logger

	mu      sync.Mutex
	title   string
	body    string
	id      uint32
	onClose func()
	onKey   func(key string)

	signals chan *dbus.Signal
	done    chan struct{}
}

// Connect creates a Notifier on the session bus.
func Connect(cfg config.AlertConfig, logger *slog.Logger) (*Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return New(conn, cfg, logger)
}

// New creates a Notifier on conn and subscribes to the server's
// NotificationClosed and ActionInvoked signals.
func New(conn *dbus.Conn, cfg config.AlertConfig, logger *slog.Logger) (*Notifier, error) {
	n := newNotifier(conn.Object(dbusNotifyDest, dbusNotifyPath), cfg, logger)
	n.conn = conn

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(dbusNotifyPath),
		dbus.WithMatchInterface(dbusNotifyInterface),
	); err != nil {
		return nil, fmt.Errorf("failed to subscribe to notification signals: %w", err)
	}

	n.signals = make(chan *dbus.Signal, 16)
	n.done = make(chan struct{})
	conn.Signal(n.signals)
	go n.watchSignals()

	return n, nil
}

func newNotifier(obj caller, cfg config.AlertConfig, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		obj:    obj,
		logger: logger,
		title:  cfg.Title,
		body:   cfg.Message,
	}
}

// UpdateConfig applies a reloaded [alert] section to the next notification.
func (n *Notifier) UpdateConfig(cfg config.AlertConfig) {
	n.mu.Lock()
	n.title, n.body = cfg.Title, cfg.Message
	n.mu.Unlock()
}

// Notify sends a notification and returns its ID.
func (n *Notifier) Notify(notif Notification) (uint32, error) {
	hints := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(notif.Urgency)),
		"desktop-entry": dbus.MakeVariant(desktopEntry),
	}
	actions := notif.Actions
	if actions == nil {
		actions = []string{}
	}

	// Notify(app_name, replaces_id, icon, summary, body, actions, hints, timeout) -> id
	call := n.obj.Call(
		dbusNotifyInterface+".Notify",
		0,
		appName,
		notif.ReplacesID,
		notif.Icon,
		notif.Title,
		notif.Body,
		actions,
		hints,
		notif.Timeout,
	)
	if call.Err != nil {
		return 0, call.Err
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// CloseNotification closes a notification by ID.
func (n *Notifier) CloseNotification(id uint32) error {
	return n.obj.Call(dbusNotifyInterface+".CloseNotification", 0, id).Err
}

func (n *Notifier) alert(replaces uint32) (uint32, error) {
	n.mu.Lock()
	title, body := n.title, n.body
	n.mu.Unlock()

	return n.Notify(Notification{
		Title:      title,
		Body:       body,
		Icon:       alertIcon,
		Timeout:    0,
		ReplacesID: replaces,
		Urgency:    UrgencyCritical,
		Actions:    []string{ActionDismiss, "Dismiss"},
	})
}

// Show sends the alert notification.
func (n *Notifier) Show() error {
	n.mu.Lock()
	replaces := n.id
	n.mu.Unlock()

	id, err := n.alert(replaces)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	n.mu.Lock()
	n.id = id
	n.mu.Unlock()
	return nil
}

// Hide closes the alert notification if one is open.
func (n *Notifier) Hide() error {
	n.mu.Lock()
	id := n.id
	n.id = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	if err := n.CloseNotification(id); err != nil {
		return fmt.Errorf("failed to close notification %d: %w", id, err)
	}
	return nil
}

// AddCSSClass re-sends an open notification in place when the shake class
// is added; notification servers have no styling hook.
func (n *Notifier) AddCSSClass(name string) {
	if name != alert.ShakeClass {
		return
	}
	n.mu.Lock()
	id := n.id
	n.mu.Unlock()
	if id == 0 {
		return
	}
	if _, err := n.alert(id); err != nil {
		n.logger.Debug("failed to re-send notification", "id", id, "error", err)
	}
}

// RemoveCSSClass is a no-op.
func (n *Notifier) RemoveCSSClass(string) {}

// OnCloseClicked registers fn for user dismissal: the dismiss action or the
// server reporting the notification was dismissed.
func (n *Notifier) OnCloseClicked(fn func()) {
	n.mu.Lock()
	n.onClose = fn
	n.mu.Unlock()
}

// OnKeyPressed stores fn; notification servers do not report key presses.
func (n *Notifier) OnKeyPressed(fn func(key string)) {
	n.mu.Lock()
	n.onKey = fn
	n.mu.Unlock()
}

// Close unsubscribes from signals. The shared session bus stays open.
func (n *Notifier) Close() error {
	if n.conn == nil {
		return nil
	}
	n.conn.RemoveSignal(n.signals)
	close(n.done)
	return n.conn.RemoveMatchSignal(
		dbus.WithMatchObjectPath(dbusNotifyPath),
		dbus.WithMatchInterface(dbusNotifyInterface),
	)
}

func (n *Notifier) watchSignals() {
	for {
		select {
		case <-n.done:
			return
		case sig, ok := <-n.signals:
			if !ok {
				return
			}
			n.handleSignal(sig)
		}
	}
}

// handleSignal reacts to signals about the current notification only.
func (n *Notifier) handleSignal(sig *dbus.Signal) {
	if sig == nil || len(sig.Body) < 2 {
		return
	}
	id, ok := sig.Body[0].(uint32)
	if !ok {
		return
	}

	n.mu.Lock()
	current := n.id
	onClose := n.onClose
	n.mu.Unlock()
	if id == 0 || id != current {
		return
	}

	switch sig.Name {
	case dbusNotifyInterface + ".NotificationClosed":
		reason, _ := sig.Body[1].(uint32)
		n.mu.Lock()
		if n.id == id {
			n.id = 0
		}
		n.mu.Unlock()
		n.logger.Debug("notification closed", "id", id, "reason", reason)
		if CloseReason(reason) == CloseReasonDismissed && onClose != nil {
			onClose()
		}

	case dbusNotifyInterface + ".ActionInvoked":
		action, _ := sig.Body[1].(string)
		if action == ActionDismiss && onClose != nil {
			onClose()
		}
	}
}

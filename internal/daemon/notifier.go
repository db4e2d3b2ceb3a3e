package daemon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nopickie/nopickie/internal/notify"
)

// NoticeLevel indicates the severity of an internal notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarning
	NoticeError
)

func (l NoticeLevel) urgency() notify.Urgency {
	switch l {
	case NoticeInfo:
		return notify.UrgencyLow
	case NoticeError:
		return notify.UrgencyCritical
	default:
		return notify.UrgencyNormal
	}
}

func (l NoticeLevel) icon() string {
	switch l {
	case NoticeInfo:
		return "dialog-information"
	case NoticeError:
		return "dialog-error"
	default:
		return "dialog-warning"
	}
}

// Sender delivers a desktop notification. *notify.Notifier satisfies it.
type Sender interface {
	Notify(n notify.Notification) (uint32, error)
}

// InternalNotifier tells the user about the daemon's own problems (a broken
// config, an unplayable sound). Repeats of the same key are rate limited.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger
	sender Sender
	now    func() time.Time

	lastSent    map[string]time.Time
	minInterval time.Duration
	enabled     bool
}

// NewInternalNotifier creates a notifier. A nil sender only logs.
func NewInternalNotifier(sender Sender, logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:      logger,
		sender:      sender,
		now:         time.Now,
		lastSent:    make(map[string]time.Time),
		minInterval: 5 * time.Second,
		enabled:     true,
	}
}

// SetEnabled enables or disables internal notices.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between notices with the same key.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify sends a notice unless one with the same key went out within the
// minimum interval. It reports whether the notice was sent.
func (n *InternalNotifier) Notify(key, summary, body string, level NoticeLevel) bool {
	n.mu.Lock()
	if !n.enabled || n.sender == nil {
		n.mu.Unlock()
		n.logger.Debug("internal notice skipped", "key", key, "summary", summary)
		return false
	}
	now := n.now()
	if last, ok := n.lastSent[key]; ok && now.Sub(last) < n.minInterval {
		n.mu.Unlock()
		n.logger.Debug("internal notice rate-limited", "key", key)
		return false
	}
	n.lastSent[key] = now
	sender := n.sender
	n.mu.Unlock()

	_, err := sender.Notify(notify.Notification{
		Title:   summary,
		Body:    body,
		Icon:    level.icon(),
		Timeout: 5000,
		Urgency: level.urgency(),
	})
	if err != nil {
		n.logger.Warn("failed to send internal notice", "key", key, "error", err)
		return false
	}
	return true
}

// NotifyConfigError reports a config file that failed to reload.
func (n *InternalNotifier) NotifyConfigError(err error) {
	n.Notify("config-error", "NoPickie configuration error",
		"Keeping the previous settings: "+err.Error(), NoticeWarning)
}

// NotifyAudioError reports an alert sound that could not be played.
func (n *InternalNotifier) NotifyAudioError(err error) {
	n.Notify("audio-error", "NoPickie audio error",
		"Failed to play the alert sound: "+err.Error(), NoticeWarning)
}

// NotifyBackendLost reports that the backend connection ended.
func (n *InternalNotifier) NotifyBackendLost(err error) {
	body := "The detector connection closed."
	if err != nil {
		body = "The detector connection failed: " + err.Error()
	}
	n.Notify("backend-lost", "NoPickie stopped", body, NoticeError)
}

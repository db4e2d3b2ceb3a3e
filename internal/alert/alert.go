// Package alert controls the lifetime of the single alert surface: when it is
// shown, when it dismisses itself, and the shake animation that re-draws
// attention to it.
//
// A visibility cycle runs Hidden -> Visible -> Dismissing -> Hidden. Only the
// Visible -> Dismissing transition hides the surface, so concurrent dismiss
// triggers (close button, Escape, expiry) produce one Hide per cycle.
package alert

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultDismissAfter is how long a shown alert stays up.
	DefaultDismissAfter = 3000 * time.Millisecond
	// DefaultShakeFor is how long the shake class stays applied.
	DefaultShakeFor = 500 * time.Millisecond

	// ShakeClass is the CSS class that carries the attention animation.
	ShakeClass = "shake"
	// KeyEscape is the key name that dismisses the alert.
	KeyEscape = "Escape"
)

// Surface is the notification surface the controller drives.
// Implementations marshal calls onto their own UI thread as needed.
type Surface interface {
	Show() error
	Hide() error
	AddCSSClass(name string)
	RemoveCSSClass(name string)
	// OnCloseClicked registers fn for the close button.
	OnCloseClicked(fn func())
	// OnKeyPressed registers fn for key presses; key is the key name ("Escape").
	OnKeyPressed(fn func(key string))
}

// State is the visibility state of the surface.
type State int

const (
	Hidden State = iota
	Visible
	Dismissing
)

func (s State) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Visible:
		return "visible"
	case Dismissing:
		return "dismissing"
	default:
		return "unknown"
	}
}

// Reason is why an alert was dismissed.
type Reason int

const (
	ReasonClosed Reason = iota
	ReasonEscape
	ReasonExpired
)

func (r Reason) String() string {
	switch r {
	case ReasonClosed:
		return "closed"
	case ReasonEscape:
		return "escape"
	case ReasonExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Timer is a pending callback. *time.Timer satisfies it.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Config tunes a Controller. Zero values select the defaults.
type Config struct {
	DismissAfter time.Duration
	ShakeFor     time.Duration
	// AfterFunc replaces time.AfterFunc, mostly for tests.
	AfterFunc AfterFunc
}

func (c Config) withDefaults() Config {
	if c.DismissAfter <= 0 {
		c.DismissAfter = DefaultDismissAfter
	}
	if c.ShakeFor <= 0 {
		c.ShakeFor = DefaultShakeFor
	}
	if c.AfterFunc == nil {
		c.AfterFunc = realAfterFunc
	}
	return c
}

// DismissHandler is called after the surface was hidden.
type DismissHandler func(reason Reason)

// Controller drives one Surface.
type Controller struct {
	surface Surface
	cfg     Config
	logger  *slog.Logger

	mu           sync.Mutex
	state        State
	bound        bool
	cycle        uint64
	dismissTimer Timer
	onDismiss    DismissHandler
	// pendingShow is set by an Alert that arrived while Dismissing.
	pendingShow bool

	// shakeMu serialises class changes so a stale clear cannot strip a fresh shake.
	shakeMu    sync.Mutex
	shakeGen   uint64
	shakeTimer Timer
}

// New creates a controller for surface. The surface starts Hidden.
func New(surface Surface, cfg Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		surface: surface,
		cfg:     cfg.withDefaults(),
		logger:  logger,
		state:   Hidden,
	}
}

// SetDismissHandler sets the callback run after each dismissal.
func (c *Controller) SetDismissHandler(fn DismissHandler) {
	c.mu.Lock()
	c.onDismiss = fn
	c.mu.Unlock()
}

// SetTimings changes the dismiss and shake durations for later cycles and
// shakes. Zero values select the defaults. A running timer keeps its deadline.
func (c *Controller) SetTimings(dismissAfter, shakeFor time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shakeMu.Lock()
	defer c.shakeMu.Unlock()

	next := Config{DismissAfter: dismissAfter, ShakeFor: shakeFor, AfterFunc: c.cfg.AfterFunc}
	c.cfg = next.withDefaults()
}

// State returns the current visibility state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Load is called once the surface is visible. It binds the close button and
// Escape (first call only) and arms the dismiss timer for this cycle. Calling
// Load again within the same cycle does not arm a second timer.
func (c *Controller) Load() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bindLocked()

	switch c.state {
	case Visible:
		if c.dismissTimer != nil {
			c.logger.Debug("alert already loaded for this cycle")
			return
		}
	case Dismissing:
		c.logger.Debug("ignoring load while dismissing")
		return
	}
	c.beginCycleLocked()
}

func (c *Controller) bindLocked() {
	if c.bound {
		return
	}
	c.bound = true
	c.surface.OnCloseClicked(func() {
		c.Dismiss(ReasonClosed)
	})
	c.surface.OnKeyPressed(func(key string) {
		if key == KeyEscape {
			c.Dismiss(ReasonEscape)
		}
	})
}

// beginCycleLocked marks the surface Visible and arms the dismiss timer.
func (c *Controller) beginCycleLocked() {
	c.state = Visible
	c.cycle++
	cycle := c.cycle
	c.dismissTimer = c.cfg.AfterFunc(c.cfg.DismissAfter, func() {
		c.expire(cycle)
	})
	c.logger.Debug("alert visible", "cycle", cycle, "dismiss_after", c.cfg.DismissAfter)
}

func (c *Controller) expire(cycle uint64) {
	c.dismiss(ReasonExpired, cycle)
}

// Dismiss hides the surface if it is Visible and reports whether this call
// performed the hide. Calls in any other state are no-ops. A failing Hide is
// logged; the controller still ends up Hidden. An Alert that arrived while
// the hide was in progress is shown once it completes.
func (c *Controller) Dismiss(reason Reason) bool {
	return c.dismiss(reason, 0)
}

// dismiss is Dismiss restricted to cycle; zero matches any cycle. The cycle
// is checked under the same lock as the Visible -> Dismissing transition.
func (c *Controller) dismiss(reason Reason, cycle uint64) bool {
	c.mu.Lock()
	if cycle != 0 && cycle != c.cycle {
		c.mu.Unlock()
		c.logger.Debug("stale alert dismiss ignored", "reason", reason, "cycle", cycle)
		return false
	}
	if c.state != Visible {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("alert dismiss ignored", "reason", reason, "state", state)
		return false
	}
	c.state = Dismissing
	if c.dismissTimer != nil {
		c.dismissTimer.Stop()
		c.dismissTimer = nil
	}
	onDismiss := c.onDismiss
	c.mu.Unlock()

	if err := c.surface.Hide(); err != nil {
		c.logger.Error("failed to hide alert", "reason", reason, "error", err)
	}

	c.mu.Lock()
	c.state = Hidden
	reshow := c.pendingShow
	c.pendingShow = false
	var next uint64
	if reshow {
		c.beginCycleLocked()
		next = c.cycle
	}
	c.mu.Unlock()

	c.logger.Debug("alert dismissed", "reason", reason)
	if onDismiss != nil {
		onDismiss(reason)
	}
	if reshow {
		c.show(next)
	}
	return true
}

// Shake restarts the attention animation: the class is removed and re-added,
// and cleared ShakeFor after the most recent call. The dismiss timer is left alone.
func (c *Controller) Shake() {
	c.shakeMu.Lock()
	defer c.shakeMu.Unlock()

	c.shakeGen++
	gen := c.shakeGen
	if c.shakeTimer != nil {
		c.shakeTimer.Stop()
	}

	c.surface.RemoveCSSClass(ShakeClass)
	c.surface.AddCSSClass(ShakeClass)

	c.shakeTimer = c.cfg.AfterFunc(c.cfg.ShakeFor, func() {
		c.clearShake(gen)
	})
}

func (c *Controller) clearShake(gen uint64) {
	c.shakeMu.Lock()
	defer c.shakeMu.Unlock()

	if gen != c.shakeGen {
		return
	}
	c.surface.RemoveCSSClass(ShakeClass)
	c.shakeTimer = nil
}

// Alert shakes the surface and, when it is Hidden, shows it and starts a
// new cycle. A visible alert keeps its original dismiss deadline. During a
// dismissal the alert is shown again as soon as the hide has finished.
func (c *Controller) Alert() {
	c.Shake()

	c.mu.Lock()
	switch c.state {
	case Visible:
		c.mu.Unlock()
		return
	case Dismissing:
		c.pendingShow = true
		c.mu.Unlock()
		c.logger.Debug("alert queued behind dismissal")
		return
	}
	c.bindLocked()
	c.beginCycleLocked()
	cycle := c.cycle
	c.mu.Unlock()

	c.show(cycle)
}

func (c *Controller) show(cycle uint64) {
	if err := c.surface.Show(); err != nil {
		c.logger.Error("failed to show alert", "error", err)
		c.abortCycle(cycle)
	}
}

// abortCycle returns to Hidden when showing failed.
func (c *Controller) abortCycle(cycle uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cycle != cycle || c.state != Visible {
		return
	}
	if c.dismissTimer != nil {
		c.dismissTimer.Stop()
		c.dismissTimer = nil
	}
	c.state = Hidden
}

// Close stops pending timers. The surface is left as it is.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.dismissTimer != nil {
		c.dismissTimer.Stop()
		c.dismissTimer = nil
	}
	c.cycle++
	c.pendingShow = false
	c.mu.Unlock()

	c.shakeMu.Lock()
	if c.shakeTimer != nil {
		c.shakeTimer.Stop()
		c.shakeTimer = nil
	}
	c.shakeGen++
	c.shakeMu.Unlock()
}

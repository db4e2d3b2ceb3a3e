package display

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/nopickie/nopickie/internal/config"
)

// Namespace is the layer-shell namespace compositors can match rules against.
const Namespace = "nopickie-alert"

// Popup is the alert window. It is built once on the GTK main thread and
// reused for every alert; Hide only unmaps it. All methods may be called
// from any goroutine.
type Popup struct {
	window *gtk.Window
	logger *slog.Logger

	box        *gtk.Box
	titleLbl   *gtk.Label
	messageLbl *gtk.Label
	closeBtn   *gtk.Button

	mu        sync.Mutex
	onClose   func()
	onKey     func(key string)
	destroyed bool
}

// NewPopup builds the popup window. Must be called on the GTK main thread.
func NewPopup(app *gtk.Application, cfg config.AlertConfig, logger *slog.Logger) (*Popup, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if app == nil {
		return nil, &PopupError{Op: "create", Err: errors.New("no application")}
	}
	if gdk.DisplayGetDefault() == nil {
		return nil, &PopupError{Op: "create", Err: ErrNoDisplay}
	}

	p := &Popup{logger: logger}

	p.window = gtk.NewWindow()
	p.window.SetApplication(app)
	p.window.SetDecorated(false)
	p.window.SetResizable(false)
	p.window.AddCSSClass("nopickie-alert")

	layershell.InitForWindow(p.window)
	layershell.SetLayer(p.window, layershell.LayerShellLayerOverlay)
	layershell.SetExclusiveZone(p.window, 0)
	// Escape needs keyboard focus while the popup is mapped
	layershell.SetKeyboardMode(p.window, layershell.LayerShellKeyboardModeOnDemand)
	layershell.SetNamespace(p.window, Namespace)

	p.buildUI()
	p.connectSignals()
	p.applyConfig(cfg)

	return p, nil
}

func (p *Popup) buildUI() {
	p.box = gtk.NewBox(gtk.OrientationVertical, 4)
	p.box.AddCSSClass("alert-popup")

	header := gtk.NewBox(gtk.OrientationHorizontal, 8)
	header.AddCSSClass("alert-header")

	p.titleLbl = gtk.NewLabel("")
	p.titleLbl.AddCSSClass("alert-title")
	p.titleLbl.SetXAlign(0)
	p.titleLbl.SetHExpand(true)
	header.Append(p.titleLbl)

	p.closeBtn = gtk.NewButtonFromIconName("window-close-symbolic")
	p.closeBtn.AddCSSClass("alert-close")
	p.closeBtn.AddCSSClass("flat")
	p.closeBtn.SetVAlign(gtk.AlignStart)
	header.Append(p.closeBtn)

	p.messageLbl = gtk.NewLabel("")
	p.messageLbl.AddCSSClass("alert-message")
	p.messageLbl.SetXAlign(0)
	p.messageLbl.SetWrap(true)

	p.box.Append(header)
	p.box.Append(p.messageLbl)
	p.window.SetChild(p.box)
}

func (p *Popup) connectSignals() {
	p.closeBtn.ConnectClicked(func() {
		p.mu.Lock()
		fn := p.onClose
		p.mu.Unlock()
		if fn != nil {
			fn()
		}
	})

	keyCtrl := gtk.NewEventControllerKey()
	keyCtrl.ConnectKeyPressed(func(keyval, _ uint, _ gdk.ModifierType) bool {
		p.mu.Lock()
		fn := p.onKey
		p.mu.Unlock()
		if fn == nil {
			return false
		}
		fn(gdk.KeyvalName(keyval))
		return true
	})
	p.window.AddController(keyCtrl)

	// A compositor close behaves like the close button; the window is kept for reuse
	p.window.ConnectCloseRequest(func() bool {
		p.mu.Lock()
		fn := p.onClose
		p.mu.Unlock()
		if fn != nil {
			fn()
		} else {
			p.window.SetVisible(false)
		}
		return true
	})

	p.window.ConnectDestroy(func() {
		p.mu.Lock()
		p.destroyed = true
		p.mu.Unlock()
	})
}

// applyConfig updates texts, size and placement. GTK main thread only.
func (p *Popup) applyConfig(cfg config.AlertConfig) {
	p.titleLbl.SetText(cfg.Title)
	p.messageLbl.SetText(cfg.Message)
	p.messageLbl.SetVisible(cfg.Message != "")
	p.window.SetDefaultSize(cfg.Width, -1)
	p.window.SetSizeRequest(cfg.Width, -1)

	for _, class := range []string{"light", "dark"} {
		p.box.RemoveCSSClass(class)
	}
	p.box.AddCSSClass(colorSchemeClass(config.ColorScheme(cfg.ColorScheme)))

	edges := config.Position(cfg.Position).Edges()
	layershell.SetAnchor(p.window, layershell.LayerShellEdgeTop, edges.Top)
	layershell.SetAnchor(p.window, layershell.LayerShellEdgeBottom, edges.Bottom)
	layershell.SetAnchor(p.window, layershell.LayerShellEdgeLeft, edges.Left)
	layershell.SetAnchor(p.window, layershell.LayerShellEdgeRight, edges.Right)
	layershell.SetMargin(p.window, layershell.LayerShellEdgeTop, cfg.OffsetY)
	layershell.SetMargin(p.window, layershell.LayerShellEdgeBottom, cfg.OffsetY)
	layershell.SetMargin(p.window, layershell.LayerShellEdgeLeft, cfg.OffsetX)
	layershell.SetMargin(p.window, layershell.LayerShellEdgeRight, cfg.OffsetX)

	placeOnMonitor(p.window, cfg.Monitor, p.logger)
}

// UpdateConfig applies a reloaded [alert] section.
func (p *Popup) UpdateConfig(cfg config.AlertConfig) {
	glib.IdleAdd(func() {
		p.applyConfig(cfg)
	})
}

func (p *Popup) alive() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return ErrDestroyed
	}
	return nil
}

// Show maps the popup.
func (p *Popup) Show() error {
	if err := p.alive(); err != nil {
		return err
	}
	glib.IdleAdd(func() {
		p.window.Present()
	})
	return nil
}

// Hide unmaps the popup.
func (p *Popup) Hide() error {
	if err := p.alive(); err != nil {
		return err
	}
	glib.IdleAdd(func() {
		p.window.SetVisible(false)
	})
	return nil
}

// AddCSSClass adds a class to the popup box. Idle callbacks run in order, so
// a remove followed by an add restarts a CSS animation.
func (p *Popup) AddCSSClass(name string) {
	glib.IdleAdd(func() {
		p.box.AddCSSClass(name)
	})
}

// RemoveCSSClass removes a class from the popup box.
func (p *Popup) RemoveCSSClass(name string) {
	glib.IdleAdd(func() {
		p.box.RemoveCSSClass(name)
	})
}

// OnCloseClicked registers the close button callback.
func (p *Popup) OnCloseClicked(fn func()) {
	p.mu.Lock()
	p.onClose = fn
	p.mu.Unlock()
}

// OnKeyPressed registers the key callback; keys are GDK key names.
func (p *Popup) OnKeyPressed(fn func(key string)) {
	p.mu.Lock()
	p.onKey = fn
	p.mu.Unlock()
}

// Destroy destroys the window. GTK main thread only.
func (p *Popup) Destroy() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	p.mu.Unlock()
	p.window.Destroy()
}

// colorSchemeClass returns "light" or "dark" from config or the system preference.
func colorSchemeClass(scheme config.ColorScheme) string {
	switch scheme {
	case config.ColorSchemeLight:
		return "light"
	case config.ColorSchemeDark:
		return "dark"
	default:
		if adw.StyleManagerGetDefault().Dark() {
			return "dark"
		}
		return "light"
	}
}

// ApplyColorScheme sets the libadwaita colour scheme for the whole process.
func ApplyColorScheme(scheme config.ColorScheme) {
	sm := adw.StyleManagerGetDefault()
	switch scheme {
	case config.ColorSchemeLight:
		sm.SetColorScheme(adw.ColorSchemeForceLight)
	case config.ColorSchemeDark:
		sm.SetColorScheme(adw.ColorSchemeForceDark)
	default:
		sm.SetColorScheme(adw.ColorSchemeDefault)
	}
}

package theme

import (
	"context"
	"log/slog"
	"sync"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

// Loader owns the GTK CSS provider for the popup. It must be created and
// applied on the GTK main thread.
type Loader struct {
	mu       sync.Mutex
	logger   *slog.Logger
	provider *gtk.CSSProvider
	theme    *Theme
	watcher  *Watcher
}

// NewLoader creates a loader with an empty provider.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:   logger,
		provider: gtk.NewCSSProvider(),
	}
}

// Load loads the theme at path (empty = built-in). A user theme that cannot
// be read falls back to the built-in one.
func (l *Loader) Load(path string) {
	t, err := Load(path)
	if err != nil {
		l.logger.Warn("failed to load theme, using built-in", "path", path, "error", err)
		t, _ = Load("")
	}

	l.mu.Lock()
	l.theme = t
	l.mu.Unlock()

	l.provider.LoadFromString(t.CSS)
	l.logger.Debug("loaded theme", "path", t.Path, "default", t.IsDefault())
}

// Apply attaches the provider to display, or the default display when nil.
func (l *Loader) Apply(display *gdk.Display) {
	if display == nil {
		display = gdk.DisplayGetDefault()
	}
	if display == nil {
		l.logger.Warn("no display available, cannot apply theme")
		return
	}
	gtk.StyleContextAddProviderForDisplay(display, l.provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
}

// StartHotReload reloads the user theme on change. The provider is updated
// on the GTK main thread.
func (l *Loader) StartHotReload(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.watcher != nil {
		l.watcher.Stop()
		l.watcher = nil
	}
	if l.theme == nil || l.theme.IsDefault() {
		return
	}

	l.watcher = NewWatcher(l.theme, func(css string) {
		glib.IdleAdd(func() {
			l.provider.LoadFromString(css)
		})
	}, l.logger)
	if err := l.watcher.Start(ctx); err != nil {
		l.logger.Warn("failed to start theme watcher", "error", err)
		l.watcher = nil
	}
}

// StopHotReload stops the theme watcher.
func (l *Loader) StopHotReload() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher != nil {
		l.watcher.Stop()
		l.watcher = nil
	}
}

package display

import (
	"log/slog"
	"unsafe"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

// placeOnMonitor pins window to the 1-indexed monitor n. Zero leaves the
// choice to the compositor; an unknown index falls back to the first monitor.
func placeOnMonitor(window *gtk.Window, n int, logger *slog.Logger) {
	if n <= 0 {
		return
	}
	display := gdk.DisplayGetDefault()
	if display == nil {
		return
	}
	monitors := display.Monitors()
	if monitors == nil || monitors.NItems() == 0 {
		logger.Warn("no monitors available")
		return
	}

	index := uint(n - 1)
	if index >= monitors.NItems() {
		logger.Warn("configured monitor not available, using first",
			"configured", n,
			"available", monitors.NItems(),
		)
		index = 0
	}

	if m := wrapMonitor(monitors.Item(index)); m != nil {
		layershell.SetMonitor(window, m)
	}
}

// wrapMonitor wraps a list item as a gdk.Monitor; gotk4 does not export
// its own wrapper.
func wrapMonitor(obj *glib.Object) *gdk.Monitor {
	if obj == nil {
		return nil
	}
	type monitor struct {
		_ [0]func()
		*glib.Object
	}
	m := &monitor{Object: obj}
	return (*gdk.Monitor)(unsafe.Pointer(m))
}

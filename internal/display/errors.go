package display

import "errors"

var (
	// ErrNoDisplay means GTK has no default display (no Wayland/X session).
	ErrNoDisplay = errors.New("no display available")
	// ErrDestroyed is returned once the popup window has been destroyed.
	ErrDestroyed = errors.New("popup window destroyed")
)

// PopupError wraps a failed popup operation.
type PopupError struct {
	Op  string
	Err error
}

func (e *PopupError) Error() string {
	return "popup " + e.Op + ": " + e.Err.Error()
}

func (e *PopupError) Unwrap() error { return e.Err }

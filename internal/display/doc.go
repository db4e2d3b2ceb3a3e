// Package display implements the GTK4 alert popup: a layer-shell window with
// a title, a message and a close button. Popup satisfies alert.Surface.
package display

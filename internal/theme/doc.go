// Package theme loads the CSS for the alert popup. The built-in stylesheet is
// embedded; a user stylesheet configured in [alert] theme is layered on top
// and hot-reloaded when it changes.
package theme

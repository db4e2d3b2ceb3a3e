// Package daemon wires nopickie-alert together: backend events drive the
// alert controller and the alert sound, config changes are hot-reloaded, and
// problems the user should see are sent as desktop notifications.
package daemon

// Package netif owns the device's two network interfaces and defines the
// boundary to the radio/IP stack.
//
// A Driver creates a Station (client mode) and an AccessPoint (soft-AP).
// The Registry is the only owner of those handles: it builds both in
// Initialize, hands out non-owning references, and destroys them in Teardown.
// Teardown is safe to call more than once.
//
// Station commands are asynchronous. Connect returns once the attempt has been
// issued; the outcome arrives later as a LinkEvent carrying the session value
// passed to Connect, so a consumer can discard notifications that belong to a
// superseded attempt.
//
// The sim subpackage provides a host-side Driver for running the manager
// without radio hardware.
package netif

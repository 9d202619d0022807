// Package sim is a simulated radio for running the Wi-Fi manager on a host.
//
// The environment is a map of visible SSIDs to passwords. Connect reports
// LinkGotIP with an address from the lease pool when the credentials match,
// and LinkDisconnected with a reason (no_ap_found, auth_fail) when they do
// not. Events are delivered from timer goroutines after Config.Latency, the
// same way a real driver reports results asynchronously.
package sim

// Package monitor is a terminal dashboard for a running Wi-Fi manager.
//
// It subscribes to the portal's status feed and shows the station state,
// network, address, retry count and session, plus the most recent events.
// Keys: d disconnects, r reconnects with saved credentials, q quits.
//
//	client := portal.NewClient("192.168.0.1")
//	err := monitor.Run(ctx, client)
package monitor

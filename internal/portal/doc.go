// Package portal is the HTTP configuration portal of the Wi-Fi manager.
//
// The Server is the manager's HTTPServer collaborator. It turns REST calls
// into queued messages and pushes every status change to websocket
// subscribers:
//
//	GET  /api/wifi/status      current status snapshot
//	POST /api/wifi/connect     {"ssid": "...", "password": "..."}; 202, 400, 429 or 503
//	POST /api/wifi/disconnect  drop the link and forget saved credentials
//	POST /api/wifi/reconnect   connect again with saved credentials
//	GET  /ws                   stream of status events
//	GET  /metrics              Prometheus metrics
//
// A 202 means the request was queued, not that the station connected; the
// outcome is reported on /ws and in later status snapshots. A 503 means the
// manager's event queue was full and the request can be retried.
//
// Client is the matching HTTP client used by wifiapp-cfg. It retries
// transient failures (network errors, 429, 503) with exponential backoff.
package portal

package portal

import (
	"time"

	"github.com/muurk/wifiapp/internal/wifiapp"
)

// API paths.
const (
	PathStatus     = "/api/wifi/status"
	PathConnect    = "/api/wifi/connect"
	PathDisconnect = "/api/wifi/disconnect"
	PathReconnect  = "/api/wifi/reconnect"
	PathEvents     = "/ws"
	PathMetrics    = "/metrics"
)

// ConnectRequest is the body of POST /api/wifi/connect.
type ConnectRequest struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

// AcceptedResponse is returned with 202 when a request was queued.
type AcceptedResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// ErrorResponse is returned with every 4xx/5xx status.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// EventType identifies a websocket event.
type EventType string

const (
	// EventStatus carries a status snapshot
	EventStatus EventType = "status"
	// EventConnected is sent when the station obtains an address
	EventConnected EventType = "connected"
	// EventFailed is sent when a session gives up or credentials are rejected
	EventFailed EventType = "failed"
)

// Event is one websocket message.
type Event struct {
	Type   EventType      `json:"type"`
	Status wifiapp.Status `json:"status"`
	Reason string         `json:"reason,omitempty"`
	Time   time.Time      `json:"time"`
}

package wifiapp

import (
	"context"

	"github.com/muurk/wifiapp/internal/credentials"
)

// Failure reasons passed to HTTPServer.NotifyFailed and recorded in
// Status.Reason.
const (
	ReasonRetriesExhausted   = "retries_exhausted"
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonUserDisconnect     = "user_disconnect"
	ReasonConnectError       = "connect_error"
	ReasonDisconnectTimeout  = "disconnect_timeout"
)

// HTTPServer is the configuration portal as seen by the state machine.
// Start must not block; Notify* are called on the consumer goroutine and
// must return promptly.
type HTTPServer interface {
	Start(ctx context.Context) error
	NotifyConnected(status Status)
	NotifyFailed(status Status, reason string)
}

// CredentialStore persists the station credentials.
type CredentialStore interface {
	Load(ctx context.Context) (credentials.Credentials, bool, error)
	Save(ctx context.Context, c credentials.Credentials) error
	Clear(ctx context.Context) error
}

// StatusObserver receives every published Status. OnStatus runs on the
// consumer goroutine and must not block.
type StatusObserver interface {
	OnStatus(status Status)
}

// Metrics receives counters from the state machine. *metrics.Collector
// satisfies it.
type Metrics interface {
	MessageHandled(kind string)
	ConnectAttempt()
	SessionStarted()
	StaleEvent(kind string)
	SetRetries(n int)
	SetState(state string)
}

type nopMetrics struct{}

func (nopMetrics) MessageHandled(string) {}
func (nopMetrics) ConnectAttempt()       {}
func (nopMetrics) SessionStarted()       {}
func (nopMetrics) StaleEvent(string)     {}
func (nopMetrics) SetRetries(int)        {}
func (nopMetrics) SetState(string)       {}

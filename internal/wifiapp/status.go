package wifiapp

import (
	"fmt"
	"strings"
	"time"
)

// Source records where the current session's credentials came from.
type Source int

const (
	// SourceNone means there is no active session
	SourceNone Source = iota
	// SourceSaved means the credentials were read from the store
	SourceSaved
	// SourcePortal means the credentials were submitted through the portal
	// and are saved once the connection succeeds
	SourcePortal
)

var sourceNames = [...]string{
	SourceNone:   "none",
	SourceSaved:  "saved",
	SourcePortal: "portal",
}

// String returns the source name
func (s Source) String() string {
	if s >= 0 && int(s) < len(sourceNames) {
		return sourceNames[s]
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Source) UnmarshalText(text []byte) error {
	for i, n := range sourceNames {
		if strings.EqualFold(n, string(text)) {
			*s = Source(i)
			return nil
		}
	}
	return fmt.Errorf("unknown credential source %q", text)
}

// Status is a read-only snapshot of the manager, published after every
// handled message.
type Status struct {
	State      State     `json:"state"`
	SSID       string    `json:"ssid,omitempty"`
	IP         string    `json:"ip,omitempty"`
	Retries    int       `json:"retries"`
	MaxRetries int       `json:"max_retries"`
	Session    uint64    `json:"session"`
	Source     Source    `json:"source"`
	Reason     string    `json:"reason,omitempty"`
	LastEvent  string    `json:"last_event,omitempty"`
	Portal     bool      `json:"portal"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Exhausted reports whether the session gave up retrying.
func (s Status) Exhausted() bool {
	return s.State == StateIdle && s.MaxRetries > 0 && s.Retries >= s.MaxRetries
}

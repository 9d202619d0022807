package wifiapp

import (
	"fmt"
	"strings"
)

// State is the connection state of the station.
type State int

const (
	// StateIdle means no connection activity
	StateIdle State = iota
	// StateAwaitingCredentials means the credential store is being read
	StateAwaitingCredentials
	// StateConnecting means a connect attempt is in flight
	StateConnecting
	// StateConnected means the station holds an address
	StateConnected
	// StateDisconnecting means a user disconnect is waiting for the link to drop
	StateDisconnecting
)

var stateNames = [...]string{
	StateIdle:                "Idle",
	StateAwaitingCredentials: "AwaitingCredentials",
	StateConnecting:          "Connecting",
	StateConnected:           "Connected",
	StateDisconnecting:       "Disconnecting",
}

// String returns the state name
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseState converts a state name, case-insensitively.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if strings.EqualFold(n, name) {
			return State(i), nil
		}
	}
	return StateIdle, fmt.Errorf("unknown state %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// linkActive reports whether the station has a link up or an attempt in flight.
func (s State) linkActive() bool {
	return s == StateConnecting || s == StateConnected
}

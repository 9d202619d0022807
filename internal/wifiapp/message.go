package wifiapp

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/muurk/wifiapp/internal/credentials"
)

// MessageKind identifies one of the six message types the state machine
// consumes. The set is closed.
type MessageKind int

const (
	// KindStartHTTPServer asks the portal collaborator to start
	KindStartHTTPServer MessageKind = iota
	// KindConnectingFromHTTPServer carries credentials submitted via the portal
	KindConnectingFromHTTPServer
	// KindStationConnectedGotIP reports association plus an address
	KindStationConnectedGotIP
	// KindUserRequestedStationDisconnect cancels any connection activity
	KindUserRequestedStationDisconnect
	// KindLoadSavedCredentials asks the manager to connect with stored credentials
	KindLoadSavedCredentials
	// KindStationDisconnected reports a failed attempt or a lost link
	KindStationDisconnected
)

// String returns the message kind name
func (k MessageKind) String() string {
	switch k {
	case KindStartHTTPServer:
		return "StartHTTPServer"
	case KindConnectingFromHTTPServer:
		return "ConnectingFromHTTPServer"
	case KindStationConnectedGotIP:
		return "StationConnectedGotIP"
	case KindUserRequestedStationDisconnect:
		return "UserRequestedStationDisconnect"
	case KindLoadSavedCredentials:
		return "LoadSavedCredentials"
	case KindStationDisconnected:
		return "StationDisconnected"
	default:
		return fmt.Sprintf("MessageKind(%d)", int(k))
	}
}

// Message is a value that can be sent on a Channel. Only the six types in
// this file implement it.
type Message interface {
	Kind() MessageKind
	dispatch(ctx context.Context, h handler)
}

// handler has one method per message type. The consumer implements it, so a
// new message type does not compile until it is handled.
type handler interface {
	startHTTPServer(ctx context.Context, m StartHTTPServer)
	connectingFromHTTPServer(ctx context.Context, m ConnectingFromHTTPServer)
	stationConnectedGotIP(ctx context.Context, m StationConnectedGotIP)
	userRequestedStationDisconnect(ctx context.Context, m UserRequestedStationDisconnect)
	loadSavedCredentials(ctx context.Context, m LoadSavedCredentials)
	stationDisconnected(ctx context.Context, m StationDisconnected)
}

// StartHTTPServer requests the configuration portal. It is enqueued once at
// startup; repeats are ignored.
type StartHTTPServer struct{}

// ConnectingFromHTTPServer carries credentials entered in the portal.
type ConnectingFromHTTPServer struct {
	Credentials credentials.Credentials
}

// StationConnectedGotIP reports that the station obtained an address.
// Session is the connect session the event belongs to; 0 means untagged.
type StationConnectedGotIP struct {
	Session uint64
	IP      netip.Addr
}

// UserRequestedStationDisconnect drops the link and forgets the session.
type UserRequestedStationDisconnect struct{}

// LoadSavedCredentials asks the manager to read the credential store and
// connect if anything is saved.
type LoadSavedCredentials struct{}

// StationDisconnected reports that an attempt failed or an established link
// was lost. Session is the connect session the event belongs to; 0 means
// untagged.
type StationDisconnected struct {
	Session uint64
	Reason  string
}

func (StartHTTPServer) Kind() MessageKind                { return KindStartHTTPServer }
func (ConnectingFromHTTPServer) Kind() MessageKind       { return KindConnectingFromHTTPServer }
func (StationConnectedGotIP) Kind() MessageKind          { return KindStationConnectedGotIP }
func (UserRequestedStationDisconnect) Kind() MessageKind { return KindUserRequestedStationDisconnect }
func (LoadSavedCredentials) Kind() MessageKind           { return KindLoadSavedCredentials }
func (StationDisconnected) Kind() MessageKind            { return KindStationDisconnected }

func (m StartHTTPServer) dispatch(ctx context.Context, h handler) { h.startHTTPServer(ctx, m) }
func (m ConnectingFromHTTPServer) dispatch(ctx context.Context, h handler) {
	h.connectingFromHTTPServer(ctx, m)
}
func (m StationConnectedGotIP) dispatch(ctx context.Context, h handler) {
	h.stationConnectedGotIP(ctx, m)
}
func (m UserRequestedStationDisconnect) dispatch(ctx context.Context, h handler) {
	h.userRequestedStationDisconnect(ctx, m)
}
func (m LoadSavedCredentials) dispatch(ctx context.Context, h handler) {
	h.loadSavedCredentials(ctx, m)
}
func (m StationDisconnected) dispatch(ctx context.Context, h handler) {
	h.stationDisconnected(ctx, m)
}

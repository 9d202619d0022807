// Package wifiapp is the Wi-Fi application manager: a single-consumer state
// machine that owns the station and soft-AP interfaces and drives connect,
// retry and disconnect in response to queued messages.
//
// Producers (driver link callbacks, the configuration portal, the CLI) only
// ever call Channel.Send, which never blocks and reports ErrChannelFull when
// the queue is full. App.Run is the one goroutine that receives from the
// channel and calls into the Machine, so retry state and station commands
// need no locking.
//
// Every connect session gets a new session number. Link events carry the
// session they belong to and events from a superseded session are dropped,
// so a late StationDisconnected can never count against a newer attempt.
//
// Transitions:
//
//	any                   LoadSavedCredentials            -> Connecting (saved) | unchanged (none)
//	any                   ConnectingFromHTTPServer        -> Connecting | unchanged (invalid)
//	Connecting            StationConnectedGotIP           -> Connected
//	Connecting/Connected  StationDisconnected             -> Connecting (retry) | Idle (exhausted)
//	Disconnecting         StationDisconnected             -> Idle
//	any                   UserRequestedStationDisconnect  -> Disconnecting | Idle
//	any                   StartHTTPServer                 -> unchanged
package wifiapp

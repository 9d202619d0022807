// Package logging provides structured logging for the Wi-Fi application manager.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the manager, the configuration portal and the CLI.
//
// # Log Levels
//
//   - Debug: per-message dispatch, unchanged states, websocket pings
//   - Info: state transitions, connect attempts, portal lifecycle
//   - Warn: ordering anomalies, stale link events, rejected sends
//   - Error: collaborator failures
//
// # Structured Logging
//
//	logging.Info("Station connected",
//	    zap.String("ssid", "HomeNet"),
//	    zap.String("ip", "10.42.0.17"),
//	)
//
// Domain helpers keep field names consistent:
//
//	logging.LogTransition("CONNECTING", "CONNECTED", "StationConnectedGotIP", 3, 0)
//	logging.LogAnomaly("StationDisconnected", "IDLE")
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given and WIFIAPP_LOG_LEVEL is unset the logger is a no-op,
// which keeps CLI output and test output clean.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. Initialize and SetLogger
// are meant to be called once during startup.
package logging

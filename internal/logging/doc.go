// Package logging provides structured logging for the relay server.
//
// This package wraps a zap logger with package-level convenience functions so
// every part of the server logs through the same core. Domain helpers cover
// the events the server cares about:
//
//	logging.LogConnection(remoteAddr, "connection_accepted")
//	logging.LogHTTPRequest(remoteAddr, "POST", "/api/pins", headers)
//	logging.LogHTTPResponse(remoteAddr, 200, 0)
//	logging.LogPinWrite("pin22", "digital", 1)
//
// # Configuration
//
// Initialize logging at startup. An empty level falls back to the
// RELAY_LOG_LEVEL environment variable, and when that is empty too the
// logger stays silent:
//
//	if err := logging.Initialize("info"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// Internal faults are logged here with full detail. They never reach the
// HTTP response body.
package logging

// Package pins owns the board's output lines and the HTTP handlers that
// drive them.
//
// A Registry hands out one handle per line id. Handles are opened through
// a Driver on first use, or at startup when an allowed set is configured,
// and are reused for the life of the process.
//
// The actuation routes take a JSON object keyed by pin id:
//
//	POST /api/pins  {"pin22": true, "LED": 0}
//	POST /api/pwms  {"pin5": 32768}
//
// A body that does not decode, or names a pin outside the allowed set, is
// answered with 400 before any line is written.
package pins

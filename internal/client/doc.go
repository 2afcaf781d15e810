// Package client talks to a running relay server over HTTP.
//
// It is the counterpart of the pin endpoints: SetPins posts a JSON object
// of pin levels to /api/pins and SetDuties posts PWM duties to /api/pwms.
// Every request asks for the connection to be closed, matching the
// server's one-request-per-connection behaviour. Network failures are
// retried; answers of 400, 404 and 500 are returned as *RequestError
// without retrying.
package client

package client

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrorType represents the category of a failed request
type ErrorType int

const (
	// ErrTypeNetwork covers dial, write and read failures
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates the request timed out
	ErrTypeTimeout
	// ErrTypeRejected means the server answered 400 or 404
	ErrTypeRejected
	// ErrTypeServer means the server answered 500 or another unexpected status
	ErrTypeServer
	// ErrTypeEncode indicates the payload could not be encoded
	ErrTypeEncode
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeRejected:
		return "Rejected"
	case ErrTypeServer:
		return "Server Error"
	case ErrTypeEncode:
		return "Encode Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// RequestError describes a failed call against a relay server.
type RequestError struct {
	Type       ErrorType
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	msg := e.Type.String() + ": " + e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// newTransportError classifies an error returned by http.Client.Do.
func newTransportError(message string, err error) *RequestError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &RequestError{Type: ErrTypeTimeout, Message: message, Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &RequestError{Type: ErrTypeTimeout, Message: message, Err: err}
	}
	return &RequestError{Type: ErrTypeNetwork, Message: message, Err: err}
}

// newStatusError maps a non-200 answer onto an error type.
func newStatusError(status int) *RequestError {
	switch status {
	case 400:
		return &RequestError{Type: ErrTypeRejected, StatusCode: status, Message: "payload rejected"}
	case 404:
		return &RequestError{Type: ErrTypeRejected, StatusCode: status, Message: "endpoint not found"}
	default:
		return &RequestError{Type: ErrTypeServer, StatusCode: status, Message: "server failed to apply request"}
	}
}

// IsRetryable reports whether repeating the request may succeed.
// Rejected payloads and server-side failures are final.
func IsRetryable(err error) bool {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		return false
	}
	return reqErr.Type == ErrTypeNetwork || reqErr.Type == ErrTypeTimeout
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}

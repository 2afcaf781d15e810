package httpd

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by the static responder when neither the
	// compressed nor the plain variant of a resource exists.
	ErrNotFound = errors.New("resource not found")

	// ErrHeadersSent is returned when a header is set or a response is
	// started after the status line has already been written.
	ErrHeadersSent = errors.New("response already started")

	// ErrBodyOverflow is returned when more body bytes are written than the
	// declared Content-Length.
	ErrBodyOverflow = errors.New("body exceeds declared content length")

	// ErrShortBody is returned when a response is finished with fewer body
	// bytes than the declared Content-Length.
	ErrShortBody = errors.New("body shorter than declared content length")

	errLineTooLong  = errors.New("line too long")
	errBodyTooLarge = errors.New("request body too large")
)

// Outcome classifies how parsing a request from a connection ended.
type Outcome int

const (
	// OutcomeReady means a complete request was parsed.
	OutcomeReady Outcome = iota
	// OutcomeBadRequest means the request line or a header was malformed,
	// or the method is not supported. The connection is answered with 400.
	OutcomeBadRequest
	// OutcomeConnectionClosed means the peer went away or an I/O fault
	// happened. Nothing is written back.
	OutcomeConnectionClosed
	// OutcomeInternalError means an unexpected fault happened while
	// parsing. The connection is answered with 500.
	OutcomeInternalError
)

// String returns a short name for the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeReady:
		return "ready"
	case OutcomeBadRequest:
		return "bad_request"
	case OutcomeConnectionClosed:
		return "connection_closed"
	case OutcomeInternalError:
		return "internal_error"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ParseError is returned by Parser.Parse for every terminal outcome other
// than OutcomeReady.
type ParseError struct {
	Outcome Outcome
	Err     error

	// Line is the raw line that was rejected, when one was read.
	Line string
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Outcome, e.Err)
	}
	return e.Outcome.String()
}

// Unwrap returns the underlying error for error chain inspection
func (e *ParseError) Unwrap() error {
	return e.Err
}

// OutcomeOf maps an error returned by Parser.Parse to its outcome. A nil
// error is OutcomeReady; errors that are not a *ParseError are treated as
// internal faults.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeReady
	}
	var perr *ParseError
	if errors.As(err, &perr) {
		return perr.Outcome
	}
	return OutcomeInternalError
}

func badRequest(format string, args ...any) error {
	return &ParseError{Outcome: OutcomeBadRequest, Err: fmt.Errorf(format, args...)}
}

func badLine(line, format string, args ...any) error {
	return &ParseError{Outcome: OutcomeBadRequest, Err: fmt.Errorf(format, args...), Line: line}
}

func connectionClosed(err error) error {
	return &ParseError{Outcome: OutcomeConnectionClosed, Err: err}
}

package httpd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Supported request methods.
const (
	MethodGet  = "GET"
	MethodPost = "POST"
)

// Default parser limits.
const (
	DefaultMaxLine = 1024
	DefaultMaxBody = 4096
)

// Header holds request headers. Keys are lower-cased; a repeated key keeps
// the last value.
type Header map[string]string

// Get returns the value for key, matched case-insensitively.
func (h Header) Get(key string) string {
	return h[strings.ToLower(key)]
}

// Request is a parsed HTTP request.
type Request struct {
	Method  string
	Path    string // raw request target, not percent-decoded
	Headers Header
	Body    []byte // nil unless a positive Content-Length was read in full
}

// Limits bounds what a Parser accepts from a peer.
type Limits struct {
	MaxLine int   // longest request or header line, terminator excluded
	MaxBody int64 // largest POST body
}

// Parser reads exactly one request from a connection.
type Parser struct {
	r      *bufio.Reader
	limits Limits
}

// NewParser returns a parser reading from r. Zero limits fall back to
// DefaultMaxLine and DefaultMaxBody.
func NewParser(r io.Reader, limits Limits) *Parser {
	if limits.MaxLine <= 0 {
		limits.MaxLine = DefaultMaxLine
	}
	if limits.MaxBody <= 0 {
		limits.MaxBody = DefaultMaxBody
	}
	return &Parser{
		r:      bufio.NewReaderSize(r, limits.MaxLine+2),
		limits: limits,
	}
}

// Parse consumes one request. On any terminal outcome other than success
// it returns a *ParseError; use OutcomeOf to classify it. Parse never
// panics: an unexpected fault is reported as OutcomeInternalError.
func (p *Parser) Parse() (req *Request, err error) {
	defer func() {
		if r := recover(); r != nil {
			req = nil
			err = &ParseError{Outcome: OutcomeInternalError, Err: fmt.Errorf("panic while parsing request: %v", r)}
		}
	}()

	line, err := p.readLine()
	if err != nil {
		return nil, p.lineError(err)
	}
	if line == "" {
		return nil, badRequest("empty request line")
	}

	// A bad request line is only reported once the header block has been
	// consumed, so the peer is answered after it finished sending.
	var lineErr error
	method, path, ok := splitRequestLine(line)
	switch {
	case !ok:
		lineErr = badLine(line, "malformed request line %q", line)
	case method != MethodGet && method != MethodPost:
		lineErr = badLine(line, "unsupported method %q", method)
	}

	headers := make(Header)
	for {
		line, err := p.readLine()
		if err != nil {
			return nil, p.lineError(err)
		}
		if line == "" {
			break
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			return nil, badLine(line, "malformed header line %q", line)
		}
		headers[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	if lineErr != nil {
		return nil, lineErr
	}

	req = &Request{Method: method, Path: path, Headers: headers}
	if method != MethodPost {
		return req, nil
	}

	length, ok := contentLength(headers)
	if !ok {
		return req, nil
	}
	if length > p.limits.MaxBody {
		return nil, &ParseError{
			Outcome: OutcomeBadRequest,
			Err:     fmt.Errorf("%w: %d bytes (limit %d)", errBodyTooLarge, length, p.limits.MaxBody),
		}
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(p.r, body); err != nil {
		return nil, connectionClosed(fmt.Errorf("failed to read %d byte body: %w", length, err))
	}
	req.Body = body
	return req, nil
}

// readLine returns the next line without its terminator and trailing
// whitespace. io.EOF means the peer closed before sending anything on this
// line; a line cut off by EOF is io.ErrUnexpectedEOF.
func (p *Parser) readLine() (string, error) {
	var buf []byte
	for {
		chunk, err := p.r.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > p.limits.MaxLine+2 {
			return "", errLineTooLong
		}
		switch {
		case err == nil:
			return strings.TrimRight(string(buf), " \t\r\n"), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(buf) > 0:
			return "", io.ErrUnexpectedEOF
		default:
			return "", err
		}
	}
}

func (p *Parser) lineError(err error) error {
	if errors.Is(err, errLineTooLong) {
		return &ParseError{Outcome: OutcomeBadRequest, Err: err}
	}
	return connectionClosed(err)
}

// splitRequestLine splits "<METHOD> <PATH> <VERSION>" from the right. The
// version is ignored.
func splitRequestLine(line string) (method, path string, ok bool) {
	rest, _, found := cutLast(line, " ")
	if !found {
		return "", "", false
	}
	method, path, found = cutLast(rest, " ")
	if !found || method == "" || path == "" {
		return "", "", false
	}
	return method, path, true
}

// contentLength reports a positive Content-Length. An absent, non-numeric
// or non-positive value means there is no body.
func contentLength(h Header) (int64, bool) {
	raw, ok := h["content-length"]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

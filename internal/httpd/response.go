package httpd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// NoLength tells StartResponse to omit the Content-Length header.
const NoLength int64 = -1

var statusReasons = map[int]string{
	200: "OK",
	304: "Not Modified",
	400: "Bad Request",
	404: "Not Found",
	500: "Internal Server Error",
}

// StatusText returns the reason phrase for a status code, or "" when the
// code is not in the known-reason table.
func StatusText(status int) string {
	return statusReasons[status]
}

type headerField struct {
	key   string
	value string
}

// ResponseWriter frames an HTTP/1.1 response onto a connection. Headers are
// collected with SetHeader, then StartResponse writes the status line and
// the header block, and Write streams exactly Content-Length body bytes.
// Output is buffered until Finish.
type ResponseWriter struct {
	out      *bufio.Writer
	server   string
	headers  []headerField
	started  bool
	status   int
	declared int64
	written  int64
}

// NewResponseWriter returns a writer that buffers up to bufSize bytes
// before writing to w. server is sent in the Server header.
func NewResponseWriter(w io.Writer, server string, bufSize int) *ResponseWriter {
	return &ResponseWriter{
		out:      bufio.NewWriterSize(w, bufSize),
		server:   server,
		declared: NoLength,
	}
}

// SetHeader adds a header to be sent after the content headers. Setting a
// key again replaces its value in place.
func (rw *ResponseWriter) SetHeader(key, value string) error {
	if rw.started {
		return ErrHeadersSent
	}
	for i := range rw.headers {
		if rw.headers[i].key == key {
			rw.headers[i].value = value
			return nil
		}
	}
	rw.headers = append(rw.headers, headerField{key: key, value: value})
	return nil
}

// ResetHeaders drops every header set so far, so a fallback response does
// not carry headers meant for the one it replaces.
func (rw *ResponseWriter) ResetHeaders() error {
	if rw.started {
		return ErrHeadersSent
	}
	rw.headers = rw.headers[:0]
	return nil
}

// StartResponse writes the status line and all headers. Content-Type and
// Content-Encoding are only sent when contentLength is positive.
func (rw *ResponseWriter) StartResponse(status int, contentLength int64, contentType string, gzipped bool) error {
	if rw.started {
		return ErrHeadersSent
	}
	rw.started = true
	rw.status = status
	rw.declared = contentLength

	if reason := StatusText(status); reason != "" {
		fmt.Fprintf(rw.out, "HTTP/1.1 %d %s\r\n", status, reason)
	} else {
		fmt.Fprintf(rw.out, "HTTP/1.1 %d\r\n", status)
	}

	if contentLength != NoLength {
		rw.writeHeader("Content-Length", strconv.FormatInt(contentLength, 10))
	}
	if contentLength > 0 {
		if contentType != "" {
			if strings.HasPrefix(contentType, "text/") && !strings.Contains(contentType, "charset=") {
				contentType += ";charset=utf-8"
			}
			rw.writeHeader("Content-Type", contentType)
		}
		if gzipped {
			rw.writeHeader("Content-Encoding", "gzip")
		}
	}
	for _, h := range rw.headers {
		rw.writeHeader(h.key, h.value)
	}
	rw.writeHeader("Server", rw.server)
	_, err := rw.out.WriteString("\r\n")
	return err
}

func (rw *ResponseWriter) writeHeader(key, value string) {
	rw.out.WriteString(key)
	rw.out.WriteString(": ")
	rw.out.WriteString(value)
	rw.out.WriteString("\r\n")
}

// Write sends raw body bytes. It fails with ErrBodyOverflow instead of
// writing past the declared Content-Length.
func (rw *ResponseWriter) Write(p []byte) (int, error) {
	if !rw.started {
		return 0, fmt.Errorf("body written before status line")
	}
	if rw.declared != NoLength && rw.written+int64(len(p)) > rw.declared {
		return 0, ErrBodyOverflow
	}
	n, err := rw.out.Write(p)
	rw.written += int64(n)
	return n, err
}

// Finish flushes buffered output. It reports ErrShortBody when fewer body
// bytes than declared were written; the buffered bytes are flushed anyway.
func (rw *ResponseWriter) Finish() error {
	if err := rw.out.Flush(); err != nil {
		return fmt.Errorf("failed to flush response: %w", err)
	}
	if rw.declared != NoLength && rw.written != rw.declared {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrShortBody, rw.written, rw.declared)
	}
	return nil
}

// Started reports whether the status line has been written.
func (rw *ResponseWriter) Started() bool {
	return rw.started
}

// Status returns the status code passed to StartResponse.
func (rw *ResponseWriter) Status() int {
	return rw.status
}

// BodyBytes returns the number of body bytes written so far.
func (rw *ResponseWriter) BodyBytes() int64 {
	return rw.written
}

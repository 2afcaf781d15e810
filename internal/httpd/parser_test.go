package httpd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/dchest/uniuri"
)

func parse(t *testing.T, raw string, limits Limits) (*Request, error) {
	t.Helper()
	return NewParser(strings.NewReader(raw), limits).Parse()
}

func TestParseGet(t *testing.T) {
	req, err := parse(t, "GET /style.css HTTP/1.1\r\nHost: relay-server\r\nIf-Modified-Since:  1700000000 \r\n\r\n", Limits{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if req.Method != MethodGet {
		t.Errorf("Method = %q, want GET", req.Method)
	}
	if req.Path != "/style.css" {
		t.Errorf("Path = %q, want /style.css", req.Path)
	}
	if got := req.Headers["if-modified-since"]; got != "1700000000" {
		t.Errorf("if-modified-since = %q, want trimmed token", got)
	}
	if got := req.Headers.Get("HOST"); got != "relay-server" {
		t.Errorf("Get(HOST) = %q, want relay-server", got)
	}
	if req.Body != nil {
		t.Errorf("Body = %q, want nil for GET", req.Body)
	}
}

func TestParsePathIsRaw(t *testing.T) {
	req, err := parse(t, "GET /a%20b.txt?x=1 HTTP/1.1\r\n\r\n", Limits{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if req.Path != "/a%20b.txt?x=1" {
		t.Errorf("Path = %q, want raw target", req.Path)
	}
}

func TestParsePostBody(t *testing.T) {
	body := `{"pin22": true}`
	raw := fmt.Sprintf("POST /api/pins HTTP/1.1\r\nContent-Length: %d\r\n\r\n%s", len(body), body)

	req, err := parse(t, raw, Limits{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if string(req.Body) != body {
		t.Errorf("Body = %q, want %q", req.Body, body)
	}
}

func TestParseConsumesExactlyOneRequest(t *testing.T) {
	r := strings.NewReader("POST /api/pins HTTP/1.1\r\nContent-Length: 2\r\n\r\n{}TRAILING")
	p := NewParser(r, Limits{})

	req, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if string(req.Body) != "{}" {
		t.Errorf("Body = %q, want {}", req.Body)
	}
	rest, _ := io.ReadAll(p.r)
	if string(rest) != "TRAILING" {
		t.Errorf("unread input = %q, want TRAILING", rest)
	}
}

func TestParsePostWithoutUsableLength(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"absent", ""},
		{"non-numeric", "Content-Length: lots\r\n"},
		{"zero", "Content-Length: 0\r\n"},
		{"negative", "Content-Length: -5\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := parse(t, "POST /api/pins HTTP/1.1\r\n"+tt.header+"\r\n{\"pin22\": true}", Limits{})
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if req.Body != nil {
				t.Errorf("Body = %q, want nil", req.Body)
			}
		})
	}
}

func TestParseDuplicateHeaderLastWins(t *testing.T) {
	req, err := parse(t, "GET / HTTP/1.1\r\nX-Pin: a\r\nx-pin: b\r\n\r\n", Limits{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := req.Headers["x-pin"]; got != "b" {
		t.Errorf("x-pin = %q, want b", got)
	}
}

func TestParseHeaderValueKeepsColons(t *testing.T) {
	req, err := parse(t, "GET / HTTP/1.1\r\nHost: 192.168.4.1:80\r\n\r\n", Limits{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := req.Headers["host"]; got != "192.168.4.1:80" {
		t.Errorf("host = %q, want 192.168.4.1:80", got)
	}
}

func TestParseRandomHeaders(t *testing.T) {
	want := make(map[string]string)
	var sb strings.Builder
	sb.WriteString("GET / HTTP/1.1\r\n")
	for i := 0; i < 20; i++ {
		key, value := uniuri.NewLen(12), uniuri.NewLen(24)
		want[strings.ToLower(key)] = value
		fmt.Fprintf(&sb, "%s: %s\r\n", key, value)
	}
	sb.WriteString("\r\n")

	req, err := parse(t, sb.String(), Limits{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	for k, v := range want {
		if req.Headers[k] != v {
			t.Errorf("header %q = %q, want %q", k, req.Headers[k], v)
		}
	}
}

func TestParseOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		limits Limits
		want   Outcome
	}{
		{"garbage request line", "GARBAGE\r\n\r\n", Limits{}, OutcomeBadRequest},
		{"empty request line", "\r\n", Limits{}, OutcomeBadRequest},
		{"method without path", "GET\r\n\r\n", Limits{}, OutcomeBadRequest},
		{"missing version", "GET /\r\n\r\n", Limits{}, OutcomeBadRequest},
		{"unsupported method", "DELETE /api/pins HTTP/1.1\r\nHost: x\r\n\r\n", Limits{}, OutcomeBadRequest},
		{"header without colon", "GET / HTTP/1.1\r\nNoColonHere\r\n\r\n", Limits{}, OutcomeBadRequest},
		{"line too long", "GET /" + strings.Repeat("a", 100) + " HTTP/1.1\r\n\r\n", Limits{MaxLine: 32}, OutcomeBadRequest},
		{"body too large", "POST /api/pins HTTP/1.1\r\nContent-Length: 100\r\n\r\n", Limits{MaxBody: 10}, OutcomeBadRequest},
		{"nothing sent", "", Limits{}, OutcomeConnectionClosed},
		{"closed before blank line", "GET / HTTP/1.1\r\n", Limits{}, OutcomeConnectionClosed},
		{"closed mid header", "GET / HTTP/1.1\r\nHost: rel", Limits{}, OutcomeConnectionClosed},
		{"bad method then close", "PUT / HTTP/1.1\r\n", Limits{}, OutcomeConnectionClosed},
		{"short body", "POST /api/pins HTTP/1.1\r\nContent-Length: 10\r\n\r\n{}", Limits{}, OutcomeConnectionClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := parse(t, tt.raw, tt.limits)
			if got := OutcomeOf(err); got != tt.want {
				t.Fatalf("OutcomeOf(%v) = %v, want %v", err, got, tt.want)
			}
			if req != nil {
				t.Errorf("Parse() request = %+v, want nil", req)
			}
		})
	}
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

type panickingReader struct{}

func (panickingReader) Read([]byte) (int, error) { panic("storage exploded") }

func TestParseIOFaultIsConnectionClosed(t *testing.T) {
	ioErr := errors.New("connection reset by peer")
	_, err := NewParser(failingReader{err: ioErr}, Limits{}).Parse()

	if got := OutcomeOf(err); got != OutcomeConnectionClosed {
		t.Errorf("OutcomeOf() = %v, want %v", got, OutcomeConnectionClosed)
	}
	if !errors.Is(err, ioErr) {
		t.Errorf("error chain should contain the I/O error, got %v", err)
	}
}

func TestParsePanicIsInternalError(t *testing.T) {
	req, err := NewParser(panickingReader{}, Limits{}).Parse()
	if got := OutcomeOf(err); got != OutcomeInternalError {
		t.Errorf("OutcomeOf() = %v, want %v", got, OutcomeInternalError)
	}
	if req != nil {
		t.Errorf("request = %+v, want nil", req)
	}
}

func TestSplitRequestLine(t *testing.T) {
	tests := []struct {
		line       string
		wantMethod string
		wantPath   string
		wantOK     bool
	}{
		{"GET / HTTP/1.1", "GET", "/", true},
		{"POST /api/pwms HTTP/1.0", "POST", "/api/pwms", true},
		{"GET /", "", "", false},
		{"GET", "", "", false},
		{" / HTTP/1.1", "", "", false},
	}

	for _, tt := range tests {
		method, path, ok := splitRequestLine(tt.line)
		if method != tt.wantMethod || path != tt.wantPath || ok != tt.wantOK {
			t.Errorf("splitRequestLine(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.line, method, path, ok, tt.wantMethod, tt.wantPath, tt.wantOK)
		}
	}
}

func TestOutcomeOfForeignError(t *testing.T) {
	if got := OutcomeOf(errors.New("boom")); got != OutcomeInternalError {
		t.Errorf("OutcomeOf(foreign) = %v, want %v", got, OutcomeInternalError)
	}
	if got := OutcomeOf(nil); got != OutcomeReady {
		t.Errorf("OutcomeOf(nil) = %v, want %v", got, OutcomeReady)
	}
}

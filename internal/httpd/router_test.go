package httpd

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRouterRejectsBadTables(t *testing.T) {
	ok := func(Header, []byte) int { return 200 }

	tests := []struct {
		name   string
		routes []Route
	}{
		{"duplicate", []Route{{MethodPost, "/api/pins", ok}, {MethodPost, "/api/pins", ok}}},
		{"nil handler", []Route{{MethodPost, "/api/pins", nil}}},
		{"unsupported method", []Route{{"PUT", "/api/pins", ok}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRouter(nil, tt.routes...); err == nil {
				t.Error("NewRouter() should fail")
			}
		})
	}
}

func TestDispatch(t *testing.T) {
	var gotBody []byte
	var gotHeader string
	routes := []Route{
		{MethodPost, "/api/pins", func(h Header, body []byte) int {
			gotBody = body
			gotHeader = h.Get("Content-Type")
			return 200
		}},
		{MethodPost, "/api/fail", func(Header, []byte) int { return 400 }},
		{MethodGet, "/api/status", func(Header, []byte) int { return 200 }},
	}
	rt, err := NewRouter(NewStaticResponder(testFS(), StaticOptions{}), routes...)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}

	tests := []struct {
		name       string
		req        *Request
		wantStatus string
	}{
		{"post route", &Request{Method: MethodPost, Path: "/api/pins", Headers: Header{"content-type": "application/json"}, Body: []byte(`{}`)}, "HTTP/1.1 200 OK"},
		{"handler status", &Request{Method: MethodPost, Path: "/api/fail", Headers: Header{}}, "HTTP/1.1 400 Bad Request"},
		{"get route beats static", &Request{Method: MethodGet, Path: "/api/status", Headers: Header{}}, "HTTP/1.1 200 OK"},
		{"post to unknown path", &Request{Method: MethodPost, Path: "/api/relays", Headers: Header{}}, "HTTP/1.1 404 Not Found"},
		{"post is exact match", &Request{Method: MethodPost, Path: "/api/pins/", Headers: Header{}}, "HTTP/1.1 404 Not Found"},
		{"get falls back to static", &Request{Method: MethodGet, Path: "/", Headers: Header{}}, "HTTP/1.1 200 OK"},
		{"static miss", &Request{Method: MethodGet, Path: "/nope.js", Headers: Header{}}, "HTTP/1.1 404 Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewResponseWriter(&buf, "relay-server", 256)
			if err := rt.Dispatch(tt.req, w); err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}
			if err := w.Finish(); err != nil {
				t.Fatalf("Finish() error = %v", err)
			}
			if !strings.HasPrefix(buf.String(), tt.wantStatus+"\r\n") {
				t.Errorf("response starts %q, want %q", firstLine(buf.String()), tt.wantStatus)
			}
		})
	}

	if string(gotBody) != "{}" {
		t.Errorf("handler body = %q, want {}", gotBody)
	}
	if gotHeader != "application/json" {
		t.Errorf("handler header = %q, want application/json", gotHeader)
	}
}

func TestDispatchWithoutStatic(t *testing.T) {
	rt, err := NewRouter(nil)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}

	var buf bytes.Buffer
	w := NewResponseWriter(&buf, "relay-server", 64)
	if err := rt.Dispatch(&Request{Method: MethodGet, Path: "/", Headers: Header{}}, w); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	_ = w.Finish()

	if got := firstLine(buf.String()); got != "HTTP/1.1 404 Not Found" {
		t.Errorf("status line = %q, want 404", got)
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\r\n")
	return line
}

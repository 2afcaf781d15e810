package discovery

import "testing"

func TestServerURLs(t *testing.T) {
	tests := []struct {
		name     string
		server   Server
		wantBase string
		wantPins string
	}{
		{
			name:     "ipv4 with api record",
			server:   Server{IP: "192.168.4.1", Port: 80, Metadata: map[string]string{"api": "/api/pins"}},
			wantBase: "http://192.168.4.1:80",
			wantPins: "http://192.168.4.1:80/api/pins",
		},
		{
			name:     "ipv6 without metadata",
			server:   Server{IP: "fe80::1", Port: 8080},
			wantBase: "http://[fe80::1]:8080",
			wantPins: "http://[fe80::1]:8080/api/pins",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.server.BaseURL(); got != tt.wantBase {
				t.Errorf("BaseURL() = %q, want %q", got, tt.wantBase)
			}
			if got := tt.server.PinsURL(); got != tt.wantPins {
				t.Errorf("PinsURL() = %q, want %q", got, tt.wantPins)
			}
		})
	}
}

func TestServerGetMetadata(t *testing.T) {
	var s Server
	if got := s.GetMetadata("path"); got != "" {
		t.Errorf("GetMetadata on nil map = %q, want empty", got)
	}
	s.Metadata = map[string]string{"path": "/"}
	if got := s.GetMetadata("path"); got != "/" {
		t.Errorf("GetMetadata(path) = %q, want /", got)
	}
}

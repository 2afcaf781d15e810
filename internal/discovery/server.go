package discovery

import (
	"fmt"
	"strings"
	"time"
)

// Server is a relay server found on the local network.
type Server struct {
	// Instance is the advertised instance name, normally the board hostname
	Instance string

	// Hostname is the mDNS hostname (e.g., "relay-server.local.")
	Hostname string

	// IP is the preferred address, IPv4 when one was announced
	IP string

	Port int

	// Metadata holds the TXT records, e.g. "path=/", "api=/api/pins"
	Metadata map[string]string

	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the server
func (s *Server) String() string {
	return fmt.Sprintf("Relay server %s (%s) at %s:%d", s.Instance, s.Hostname, s.IP, s.Port)
}

// BaseURL returns the HTTP base URL for the server
func (s *Server) BaseURL() string {
	host := s.IP
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("http://%s:%d", host, s.Port)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (s *Server) GetMetadata(key string) string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata[key]
}

// PinsURL returns the pin actuation endpoint advertised by the server.
func (s *Server) PinsURL() string {
	api := s.GetMetadata("api")
	if api == "" {
		api = DefaultAPIPath
	}
	return s.BaseURL() + api
}

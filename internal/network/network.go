package network

import (
	"fmt"
	"net"
	"strconv"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/relay-server/internal/config"
	"github.com/muurk/relay-server/internal/logging"
)

const (
	// ServiceType is the mDNS service type the server registers under
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."
)

// Mode is how the board joins a network.
type Mode int

const (
	// ModeStation joins an existing WLAN with stored credentials.
	ModeStation Mode = iota
	// ModeAccessPoint opens an access point named after the hostname.
	ModeAccessPoint
)

// String returns a human-readable name for the mode
func (m Mode) String() string {
	switch m {
	case ModeStation:
		return "station"
	case ModeAccessPoint:
		return "access-point"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Plan describes the network interface the board brings up.
type Plan struct {
	Mode     Mode
	Hostname string
	SSID     string // network joined in station mode, or offered in AP mode
	Open     bool   // access point without a password
}

// PlanInterface chooses station mode when credentials exist, and falls
// back to an open access point named after the hostname.
func PlanInterface(hostname string, secrets *config.Secrets) Plan {
	if secrets != nil && secrets.SSID != "" {
		return Plan{Mode: ModeStation, Hostname: hostname, SSID: secrets.SSID}
	}
	return Plan{Mode: ModeAccessPoint, Hostname: hostname, SSID: hostname, Open: true}
}

// Log reports the plan the way the board does at boot.
func (p Plan) Log() {
	if p.Mode == ModeStation {
		logging.Info("Connecting to WLAN",
			zap.String("mode", p.Mode.String()),
			zap.String("ssid", p.SSID),
			zap.String("hostname", p.Hostname),
		)
		return
	}
	logging.Warn("No WLAN credentials, providing a new access point",
		zap.String("mode", p.Mode.String()),
		zap.String("ssid", p.SSID),
		zap.Bool("open", p.Open),
	)
}

// Advertiser announces the server over mDNS until Shutdown is called.
type Advertiser struct {
	server *zeroconf.Server
}

// TXTRecords returns the TXT entries published with the service.
func TXTRecords(version string) []string {
	return []string{"path=/", "api=/api/pins", "pwm=/api/pwms", "srcvers=" + version}
}

// ListenPort extracts the port of a host:port listen address.
func ListenPort(listen string) (int, error) {
	_, portStr, err := net.SplitHostPort(listen)
	if err != nil {
		return 0, fmt.Errorf("invalid listen address %q: %w", listen, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port in listen address %q", listen)
	}
	return port, nil
}

// Advertise registers hostname as an HTTP service on port.
func Advertise(hostname string, port int, txt []string) (*Advertiser, error) {
	server, err := zeroconf.Register(hostname, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	logging.Info("Advertising over mDNS",
		zap.String("instance", hostname),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return &Advertiser{server: server}, nil
}

// Shutdown withdraws the mDNS registration
func (a *Advertiser) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	logging.Info("mDNS advertisement withdrawn")
}

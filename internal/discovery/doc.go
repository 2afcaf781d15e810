// Package discovery finds relay servers on the local network over mDNS.
//
// Relay servers register as "_http._tcp" services with the TXT records
// "path=/" and "api=/api/pins". Other HTTP services on the network answer
// the same browse query; only entries carrying the pin API record are
// reported.
//
//	scanner := discovery.NewScanner()
//	scanner.Timeout = 5 * time.Second
//	servers, err := scanner.Scan(ctx)
//	for _, s := range servers {
//	    fmt.Println(s.Instance, s.BaseURL())
//	}
//
// Find returns as soon as a named instance answers, which is how the
// command line resolves a hostname given with --host.
package discovery

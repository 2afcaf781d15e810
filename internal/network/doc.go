// Package network decides how the board joins a network and announces the
// server on it.
//
// With WLAN credentials in the secrets file the board runs as a station on
// that network; without them it offers an open access point named after
// its hostname. In both modes the server is registered over mDNS as
// "<hostname>._http._tcp.local." so clients can find it without knowing
// its address.
package network

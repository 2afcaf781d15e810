// Package config loads the relay server configuration.
//
// Two YAML files are involved. The main file (relay-server.yaml by default)
// holds listen address, hostname, static file settings, parser limits and
// the pin driver. A separate secrets file holds the WLAN credentials and is
// written with owner-only permissions:
//
//	version: 1
//	hostname: relay-server
//	listen: 0.0.0.0:80
//	data_dir: /var/lib/relay-server
//	pins:
//	  driver: sysfs
//	  outputs: [pin22, pin23]
//
// A missing main file means defaults; a missing secrets file means the
// board has no credentials and comes up as an access point.
package config

// Package ui provides terminal output for the relay-server command line.
//
// Printer renders "run once and exit" boxes: a command header, a success
// box and an error box with troubleshooting hints. RenderServers lays out
// the result of an mDNS scan as a table.
//
// PanelModel is the one interactive component, a Bubble Tea model that
// lists the output pins of a server and toggles them through a PinSetter,
// normally *client.Client:
//
//	panel := ui.NewPanel(c.BaseURL, []string{"pin22", "pin23"}, true, c)
//	err := ui.RunPanel(panel)
//
// Logging is controlled through RELAY_LOG_LEVEL. When it is unset, zap is
// silent and only the styled output reaches the terminal.
package ui

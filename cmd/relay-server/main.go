// Relay-server exposes output pins (relays, LEDs, PWM channels) of a small
// board over a minimal HTTP/1.1 server, and drives such servers remotely.
//
// It serves a static control UI from local storage, accepts JSON pin writes
// on /api/pins and /api/pwms, and announces itself over mDNS. The same
// binary discovers servers on the network and switches their pins from the
// command line or an interactive panel.
//
// Usage:
//
//	relay-server serve [--config relay-server.yaml]
//	relay-server set <server> pin22=on pin23=off
//	relay-server panel <server> --pin pin22 --pin pin23
//
// See 'relay-server --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/relay-server/internal/config"
	"github.com/muurk/relay-server/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "relay-server",
	Short: "Pin control HTTP server and client",
	Long: `A minimal HTTP/1.1 server that switches the output pins of a board.

'serve' runs the server on the board. The other commands find servers on
the local network and drive their pins remotely.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to $RELAY_LOG_LEVEL")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(panelCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(secretsCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Detailed())
	},
}

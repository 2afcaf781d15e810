package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/relay-server/internal/client"
	"github.com/muurk/relay-server/internal/discovery"
	"github.com/muurk/relay-server/internal/logging"
	"github.com/muurk/relay-server/internal/ui"
)

// Client command flags
var (
	setPWM       bool
	panelPins    []string
	panelLow     bool
	scanTimeout    int
	resolveAfter   int
	requestTimeout int
)

func init() {
	setCmd.Flags().BoolVar(&setPWM, "pwm", false, "Values are PWM duties (0..65535) sent to /api/pwms")
	setCmd.Flags().IntVar(&resolveAfter, "timeout", 5, "mDNS lookup timeout in seconds when <server> is a hostname")
	setCmd.Flags().IntVar(&requestTimeout, "request-timeout", 10, "HTTP request timeout in seconds")

	panelCmd.Flags().StringArrayVar(&panelPins, "pin", nil, "Output pin to show (repeatable)")
	panelCmd.Flags().BoolVar(&panelLow, "initial-low", false, "Assume lines start low instead of high")
	panelCmd.Flags().IntVar(&resolveAfter, "timeout", 5, "mDNS lookup timeout in seconds when <server> is a hostname")
	panelCmd.Flags().IntVar(&requestTimeout, "request-timeout", 10, "HTTP request timeout in seconds")
	_ = panelCmd.MarkFlagRequired("pin")

	discoverCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Scan timeout in seconds")
}

var setCmd = &cobra.Command{
	Use:   "set <server> <pin>=<value>...",
	Short: "Set pins on a relay server",
	Long: `Set one or more pins on a relay server in a single request.

<server> is a URL (http://192.168.4.1) or an mDNS instance name
(relay-server). Digital values are on/off, high/low, true/false or 1/0.
With --pwm the values are duties between 0 and 65535.`,
	Example: `  relay-server set http://192.168.4.1 pin22=on pin23=off
  relay-server set garage pin22=1
  relay-server set relay-server --pwm pin12=32768`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSet,
}

func runSet(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	baseURL, err := resolveServer(ctx, args[0])
	if err != nil {
		return err
	}
	c := newClient(baseURL)
	printer := ui.NewPrinter(os.Stdout)

	var fields []ui.Field
	if setPWM {
		duties, err := parseDuties(args[1:])
		if err != nil {
			return err
		}
		err = c.SetDuties(ctx, duties)
		fields = dutyFields(args[1:], duties)
		if err != nil {
			printer.PrintError("PWM update failed", err, troubleshoot(err)...)
			return err
		}
	} else {
		levels, err := parseLevels(args[1:])
		if err != nil {
			return err
		}
		err = c.SetPins(ctx, levels)
		fields = levelFields(args[1:], levels)
		if err != nil {
			printer.PrintError("Pin update failed", err, troubleshoot(err)...)
			return err
		}
	}

	printer.PrintSuccess("Pins updated", append([]ui.Field{{Key: "Server", Value: baseURL}}, fields...)...)
	return nil
}

var panelCmd = &cobra.Command{
	Use:   "panel <server>",
	Short: "Interactive switchboard for a relay server",
	Example: `  relay-server panel http://192.168.4.1 --pin pin22 --pin pin23
  relay-server panel garage --pin pin22`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Initialize(logLevel); err != nil {
			return err
		}
		defer logging.Sync()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		baseURL, err := resolveServer(ctx, args[0])
		if err != nil {
			return err
		}
		c := newClient(baseURL)
		// The panel owns the terminal once started, so fail here instead.
		if err := c.Ping(ctx); err != nil {
			ui.NewPrinter(os.Stderr).PrintError("Relay server not reachable", err, troubleshoot(err)...)
			return err
		}
		return ui.RunPanel(ui.NewPanel(baseURL, panelPins, !panelLow, c))
	},
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find relay servers on the local network",
	Long: `Browse mDNS for relay servers.

Servers register as <hostname>._http._tcp.local. with the TXT record
api=/api/pins. Other HTTP services on the network are ignored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Initialize(logLevel); err != nil {
			return err
		}
		defer logging.Sync()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		fmt.Printf("Scanning for relay servers (timeout: %ds)...\n\n", scanTimeout)
		scanner := discovery.NewScanner()
		scanner.Timeout = time.Duration(scanTimeout) * time.Second
		servers, err := scanner.Scan(ctx)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		printer := ui.NewPrinter(os.Stdout)
		printer.Println(ui.RenderServers(servers, printer.Width()))
		return nil
	},
}

// resolveServer turns a URL or an mDNS instance name into a base URL.
func resolveServer(ctx context.Context, target string) (string, error) {
	if strings.Contains(target, "://") {
		return strings.TrimSuffix(target, "/"), nil
	}
	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(resolveAfter) * time.Second
	server, err := scanner.Find(ctx, strings.TrimSuffix(target, ".local"))
	if err != nil {
		return "", err
	}
	return server.BaseURL(), nil
}

// newClient builds a client honoring --request-timeout.
func newClient(baseURL string) *client.Client {
	c := client.NewClientWithURL(baseURL)
	if requestTimeout > 0 {
		c.SetTimeout(time.Duration(requestTimeout) * time.Second)
	}
	return c
}

// parseAssignments splits "pin=value" arguments.
func parseAssignments(args []string) ([][2]string, error) {
	out := make([][2]string, 0, len(args))
	for _, arg := range args {
		pin, value, ok := strings.Cut(arg, "=")
		if !ok || pin == "" || value == "" {
			return nil, fmt.Errorf("invalid assignment %q (expected pin=value)", arg)
		}
		out = append(out, [2]string{pin, value})
	}
	return out, nil
}

func parseLevels(args []string) (map[string]bool, error) {
	pairs, err := parseAssignments(args)
	if err != nil {
		return nil, err
	}
	levels := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		switch strings.ToLower(p[1]) {
		case "1", "on", "high", "true":
			levels[p[0]] = true
		case "0", "off", "low", "false":
			levels[p[0]] = false
		default:
			return nil, fmt.Errorf("invalid level %q for %s (expected on/off)", p[1], p[0])
		}
	}
	return levels, nil
}

func parseDuties(args []string) (map[string]int, error) {
	pairs, err := parseAssignments(args)
	if err != nil {
		return nil, err
	}
	duties := make(map[string]int, len(pairs))
	for _, p := range pairs {
		duty, err := strconv.Atoi(p[1])
		if err != nil {
			return nil, fmt.Errorf("invalid duty %q for %s: %w", p[1], p[0], err)
		}
		duties[p[0]] = duty
	}
	return duties, nil
}

// levelFields lists the pins in the order they were given.
func levelFields(args []string, levels map[string]bool) []ui.Field {
	fields := make([]ui.Field, 0, len(levels))
	seen := make(map[string]bool)
	for _, arg := range args {
		pin, _, _ := strings.Cut(arg, "=")
		if seen[pin] {
			continue
		}
		seen[pin] = true
		value := "low"
		if levels[pin] {
			value = "high"
		}
		fields = append(fields, ui.Field{Key: pin, Value: value})
	}
	return fields
}

func dutyFields(args []string, duties map[string]int) []ui.Field {
	fields := make([]ui.Field, 0, len(duties))
	seen := make(map[string]bool)
	for _, arg := range args {
		pin, _, _ := strings.Cut(arg, "=")
		if seen[pin] {
			continue
		}
		seen[pin] = true
		fields = append(fields, ui.Field{Key: pin, Value: strconv.Itoa(duties[pin])})
	}
	return fields
}

func troubleshoot(err error) []string {
	switch client.StatusCode(err) {
	case 400:
		return []string{
			"Check the pin names against pins.outputs / pins.pwms in the server config",
			"PWM duties must be integers between 0 and 65535",
		}
	case 404:
		return []string{"The server does not expose this endpoint; check the URL"}
	case 500:
		return []string{"The server failed to drive the line; run it with --log-level debug"}
	}
	if client.IsRetryable(err) {
		return []string{
			"Ensure the board is powered and on this network",
			"Try 'relay-server discover' to find its address",
		}
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/relay-server/internal/config"
	"github.com/muurk/relay-server/internal/httpd"
	"github.com/muurk/relay-server/internal/logging"
	"github.com/muurk/relay-server/internal/network"
	"github.com/muurk/relay-server/internal/pins"
	"github.com/muurk/relay-server/internal/ui"
	"github.com/muurk/relay-server/internal/version"
)

// shutdownTimeout bounds the wait for open connections after a signal
const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay server",
	Long: `Run the relay server on this board.

Static files are served from <data_dir>/<static_root>. Pin writes are
accepted on /api/pins (digital) and /api/pwms (duty 0..65535). With WLAN
credentials in the secrets file the board joins that network; otherwise it
reports access-point mode under its hostname. The server runs until SIGINT
or SIGTERM.`,
	Example: `  # Run with ./relay-server.yaml (or defaults)
  relay-server serve

  # Debug logging, custom config
  relay-server serve --config /etc/relay-server.yaml --log-level debug`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level := logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	if err := logging.Initialize(level); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	secrets, err := config.LoadSecrets(cfg.SecretsPath(configPath))
	if err != nil {
		return err
	}
	plan := network.PlanInterface(cfg.Hostname, secrets)
	plan.Log()

	srv, err := buildServer(cfg)
	if err != nil {
		return err
	}

	l, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Listen, err)
	}

	ui.NewPrinter(os.Stdout).PrintHeader("Relay server", "relay-server serve",
		ui.Field{Key: "Listen", Value: l.Addr().String()},
		ui.Field{Key: "Hostname", Value: cfg.Hostname},
		ui.Field{Key: "Network", Value: plan.Mode.String() + " (" + plan.SSID + ")"},
		ui.Field{Key: "Static", Value: filepath.Join(cfg.DataDir, cfg.StaticRoot)},
		ui.Field{Key: "Driver", Value: cfg.Pins.Driver},
	)

	if cfg.MDNS.Enabled {
		port, err := network.ListenPort(l.Addr().String())
		if err == nil {
			var adv *network.Advertiser
			adv, err = network.Advertise(cfg.Hostname, port, network.TXTRecords(version.Version))
			defer adv.Shutdown()
		}
		if err != nil {
			logging.Warn("mDNS advertisement disabled", zap.Error(err))
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(l)
	}()
	logging.Info("Relay server started",
		zap.String("addr", l.Addr().String()),
		zap.String("version", version.Version),
	)

	select {
	case sig := <-sigChan:
		logging.Info("Shutdown signal received, stopping server...", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

// buildServer assembles the pin registry, router and connection supervisor
// described by cfg.
func buildServer(cfg *config.Config) (*httpd.Server, error) {
	reg, err := pins.NewRegistry(newDriver(cfg.Pins), pins.Options{
		InitialHigh: cfg.Pins.InitialHigh,
		Outputs:     nilIfEmpty(cfg.Pins.Outputs),
		PWMs:        nilIfEmpty(cfg.Pins.PWMs),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open pins: %w", err)
	}

	static := httpd.NewStaticResponder(os.DirFS(cfg.DataDir), httpd.StaticOptions{
		Root:        cfg.StaticRoot,
		CacheMaxAge: cfg.CacheMaxAge,
		SendBuffer:  cfg.SendBuffer,
	})
	router, err := httpd.NewRouter(static, pins.Routes(reg)...)
	if err != nil {
		return nil, err
	}

	return httpd.New(httpd.Config{
		Hostname:   cfg.Hostname,
		Limits:     httpd.Limits{MaxLine: cfg.MaxLine, MaxBody: cfg.MaxBody},
		SendBuffer: cfg.SendBuffer,
	}, router), nil
}

func newDriver(pc config.PinsConfig) pins.Driver {
	if pc.Driver != "sysfs" {
		return pins.NewSimDriver()
	}
	d := pins.NewSysfsDriver()
	if pc.SysfsRoot != "" {
		d.Root = pc.SysfsRoot
	}
	if pc.PWMChip != "" {
		d.PWMChip = pc.PWMChip
	}
	if pc.PWMPeriodNs > 0 {
		d.PeriodNs = pc.PWMPeriodNs
	}
	logging.Info("Using sysfs pin driver",
		zap.String("root", d.Root),
		zap.String("pwm_chip", d.PWMChip),
		zap.Int("period_ns", d.PeriodNs),
	)
	return d
}

// nilIfEmpty maps an empty allow list to nil, which allows any pin.
func nilIfEmpty(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	return ids
}

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is the config file looked up when --config is not given.
	DefaultPath = "relay-server.yaml"

	// DefaultHostname is the name the board announces itself with.
	DefaultHostname = "relay-server"

	currentVersion = 1
)

// Mutex for file writes from this process
var fileMutex sync.Mutex

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version:     currentVersion,
		Hostname:    DefaultHostname,
		Listen:      "0.0.0.0:80",
		DataDir:     ".",
		StaticRoot:  "www",
		CacheMaxAge: 600,
		SendBuffer:  1024,
		MaxLine:     1024,
		MaxBody:     4096,
		Secrets:     "secrets.yaml",
		Pins: PinsConfig{
			Driver:      "sim",
			InitialHigh: true,
		},
		MDNS: MDNSConfig{Enabled: true},
	}
}

// Load reads the config file at path. A missing file yields the defaults;
// keys absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values the server cannot run without.
func (c *Config) Validate() error {
	if c.Version != currentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, currentVersion)
	}
	if c.Hostname == "" {
		return errors.New("hostname must not be empty")
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("listen address %q: %w", c.Listen, err)
	}
	if c.StaticRoot == "" || filepath.IsAbs(c.StaticRoot) {
		return fmt.Errorf("static_root %q must be a relative directory", c.StaticRoot)
	}
	if c.CacheMaxAge <= 0 || c.SendBuffer <= 0 || c.MaxLine <= 0 || c.MaxBody <= 0 {
		return errors.New("cache_max_age, send_buffer, max_line and max_body must be positive")
	}
	switch c.Pins.Driver {
	case "sim", "sysfs":
	default:
		return fmt.Errorf("unknown pins driver %q (expected sim or sysfs)", c.Pins.Driver)
	}
	return nil
}

// SecretsPath resolves the credentials file relative to the config file.
func (c *Config) SecretsPath(configPath string) string {
	if c.Secrets == "" || filepath.IsAbs(c.Secrets) {
		return c.Secrets
	}
	return filepath.Join(filepath.Dir(configPath), c.Secrets)
}

// Save writes the config to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Relay server configuration
#
# WLAN credentials are NOT stored here. Write them with
# 'relay-server secrets' into the file named by "secrets".

`)
	return writeAtomic(path, append(header, data...), 0644)
}

// LoadSecrets reads the credentials file. A missing or empty path returns
// nil without error: the board then runs as an access point.
func LoadSecrets(path string) (*Secrets, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}

	var s Secrets
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse secrets file: %w", err)
	}
	if s.SSID == "" {
		return nil, nil
	}
	return &s, nil
}

// SaveSecrets writes the credentials file readable by the owner only.
func SaveSecrets(path string, s *Secrets) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}
	return writeAtomic(path, data, 0600)
}

// writeAtomic writes to a temporary file first and renames it over path.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

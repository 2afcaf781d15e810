package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Hostname != DefaultHostname {
		t.Errorf("Hostname = %q, want %q", cfg.Hostname, DefaultHostname)
	}
	if cfg.CacheMaxAge != 600 {
		t.Errorf("CacheMaxAge = %d, want 600", cfg.CacheMaxAge)
	}
	if !cfg.Pins.InitialHigh {
		t.Error("Pins.InitialHigh should default to true")
	}
	if !cfg.MDNS.Enabled {
		t.Error("MDNS.Enabled should default to true")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay-server.yaml")
	data := `version: 1
hostname: garage-relays
listen: 127.0.0.1:8080
pins:
  driver: sysfs
  outputs: [pin22, pin23]
mdns:
  enabled: false
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Hostname != "garage-relays" {
		t.Errorf("Hostname = %q, want garage-relays", cfg.Hostname)
	}
	if cfg.Listen != "127.0.0.1:8080" {
		t.Errorf("Listen = %q, want 127.0.0.1:8080", cfg.Listen)
	}
	if cfg.Pins.Driver != "sysfs" || len(cfg.Pins.Outputs) != 2 {
		t.Errorf("Pins = %+v, want sysfs driver with 2 outputs", cfg.Pins)
	}
	if !cfg.Pins.InitialHigh {
		t.Error("Pins.InitialHigh should keep its default when absent from the file")
	}
	if cfg.MDNS.Enabled {
		t.Error("MDNS.Enabled should be false")
	}
	if cfg.MaxBody != 4096 {
		t.Errorf("MaxBody = %d, want default 4096", cfg.MaxBody)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"version", "version: 2\n", "unsupported config version"},
		{"listen", "listen: nowhere\n", "listen address"},
		{"driver", "pins:\n  driver: spi\n", "unknown pins driver"},
		{"static root", "static_root: /etc\n", "static_root"},
		{"limits", "max_body: 0\n", "must be positive"},
		{"yaml", "hostname: [unclosed\n", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "relay-server.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "relay-server.yaml")
	cfg := Default()
	cfg.Hostname = "porch"
	cfg.Pins.PWMs = []string{"pin5"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Hostname != "porch" || len(loaded.Pins.PWMs) != 1 {
		t.Errorf("loaded = %+v, want hostname porch with one PWM", loaded)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should be gone after Save()")
	}
}

func TestSecretsPath(t *testing.T) {
	cfg := Default()
	if got := cfg.SecretsPath("/etc/relay/relay-server.yaml"); got != filepath.Join("/etc/relay", "secrets.yaml") {
		t.Errorf("SecretsPath() = %q", got)
	}
	cfg.Secrets = "/run/secrets/wlan.yaml"
	if got := cfg.SecretsPath("/etc/relay/relay-server.yaml"); got != "/run/secrets/wlan.yaml" {
		t.Errorf("SecretsPath() = %q, want absolute path unchanged", got)
	}
}

func TestSecretsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.yaml")

	if s, err := LoadSecrets(path); err != nil || s != nil {
		t.Fatalf("LoadSecrets(missing) = %v, %v; want nil, nil", s, err)
	}

	if err := SaveSecrets(path, &Secrets{SSID: "home", Password: "hunter2"}); err != nil {
		t.Fatalf("SaveSecrets() error = %v", err)
	}
	s, err := LoadSecrets(path)
	if err != nil {
		t.Fatalf("LoadSecrets() error = %v", err)
	}
	if s == nil || s.SSID != "home" || s.Password != "hunter2" {
		t.Errorf("LoadSecrets() = %+v, want home/hunter2", s)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("secrets permissions = %o, want 600", perm)
		}
	}
}

func TestLoadSecretsWithoutSSID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.yaml")
	if err := os.WriteFile(path, []byte("password: x\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if s, err := LoadSecrets(path); err != nil || s != nil {
		t.Errorf("LoadSecrets() = %v, %v; want nil, nil", s, err)
	}
}

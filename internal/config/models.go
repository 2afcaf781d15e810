package config

// Config is the relay server configuration file.
//
// Hostname is used as the mDNS name, the access point SSID and the Server
// header. DataDir holds StaticRoot, the directory served for GET requests.
// Secrets names the credentials file, relative to the config file.
// LogLevel is overridden by the --log-level flag.
type Config struct {
	Version     int        `yaml:"version"`
	Hostname    string     `yaml:"hostname"`
	Listen      string     `yaml:"listen"`
	DataDir     string     `yaml:"data_dir"`
	StaticRoot  string     `yaml:"static_root"`
	CacheMaxAge int        `yaml:"cache_max_age"`
	SendBuffer  int        `yaml:"send_buffer"`
	MaxLine     int        `yaml:"max_line"`
	MaxBody     int64      `yaml:"max_body"`
	LogLevel    string     `yaml:"log_level,omitempty"`
	Secrets     string     `yaml:"secrets"`
	Pins        PinsConfig `yaml:"pins"`
	MDNS        MDNSConfig `yaml:"mdns"`
}

// PinsConfig selects the output driver ("sim" or "sysfs") and the allowed
// lines. Empty Outputs or PWMs lists allow any id.
type PinsConfig struct {
	Driver      string   `yaml:"driver"`
	InitialHigh bool     `yaml:"initial_high"`
	Outputs     []string `yaml:"outputs,omitempty"`
	PWMs        []string `yaml:"pwms,omitempty"`
	SysfsRoot   string   `yaml:"sysfs_root,omitempty"`
	PWMChip     string   `yaml:"pwm_chip,omitempty"`
	PWMPeriodNs int      `yaml:"pwm_period_ns,omitempty"`
}

// MDNSConfig controls the mDNS advertisement of the server.
type MDNSConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Secrets holds the WLAN credentials. They live in their own file so the
// main config can be shared without leaking the password.
type Secrets struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
}

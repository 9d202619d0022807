package config

import "github.com/muurk/wifiapp/internal/wifiapp"

// Config is the complete manager configuration.
type Config struct {
	AccessPoint AccessPointConfig `mapstructure:"access_point" yaml:"access_point"`
	Station     StationConfig     `mapstructure:"station" yaml:"station"`
	Manager     ManagerConfig     `mapstructure:"manager" yaml:"manager"`
	Portal      PortalConfig      `mapstructure:"portal" yaml:"portal"`
	Credentials CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
	Sim         SimConfig         `mapstructure:"sim" yaml:"sim"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`

	// File is the config file that was read, empty when running on defaults.
	File string `mapstructure:"-" yaml:"-"`
}

// AccessPointConfig describes the soft-AP the portal is served on.
type AccessPointConfig struct {
	SSID             string `mapstructure:"ssid" yaml:"ssid"`
	Password         string `mapstructure:"password" yaml:"password"`
	Channel          int    `mapstructure:"channel" yaml:"channel"`
	Hidden           bool   `mapstructure:"hidden" yaml:"hidden"`
	MaxConnections   int    `mapstructure:"max_connections" yaml:"max_connections"`
	BeaconIntervalMS int    `mapstructure:"beacon_interval_ms" yaml:"beacon_interval_ms"`
	IP               string `mapstructure:"ip" yaml:"ip"`
	Gateway          string `mapstructure:"gateway" yaml:"gateway"`
	Netmask          string `mapstructure:"netmask" yaml:"netmask"`
	Bandwidth        string `mapstructure:"bandwidth" yaml:"bandwidth"` // "ht20" or "ht40"
}

// StationConfig describes the client interface.
type StationConfig struct {
	PowerSave string `mapstructure:"power_save" yaml:"power_save"` // none, min_modem, max_modem
	Hostname  string `mapstructure:"hostname" yaml:"hostname,omitempty"`
}

// ManagerConfig tunes the state machine.
type ManagerConfig struct {
	MaxRetries         int  `mapstructure:"max_retries" yaml:"max_retries"`
	QueueCapacity      int  `mapstructure:"queue_capacity" yaml:"queue_capacity"`
	ForgetOnDisconnect bool `mapstructure:"forget_on_disconnect" yaml:"forget_on_disconnect"`
}

// PortalConfig configures the HTTP configuration portal.
type PortalConfig struct {
	Listen       string  `mapstructure:"listen" yaml:"listen"`
	Advertise    bool    `mapstructure:"advertise" yaml:"advertise"`
	Instance     string  `mapstructure:"instance" yaml:"instance"`
	ConnectRate  float64 `mapstructure:"connect_rate" yaml:"connect_rate"` // requests per second per client
	ConnectBurst int     `mapstructure:"connect_burst" yaml:"connect_burst"`
	Metrics      bool    `mapstructure:"metrics" yaml:"metrics"`
}

// CredentialsConfig locates the credential store.
type CredentialsConfig struct {
	Path string `mapstructure:"path" yaml:"path,omitempty"`
}

// SimConfig describes the simulated radio environment.
type SimConfig struct {
	Latency  string       `mapstructure:"latency" yaml:"latency"`
	Pool     string       `mapstructure:"pool" yaml:"pool"`
	Networks []SimNetwork `mapstructure:"networks" yaml:"networks"`
}

// SimNetwork is one network visible to the simulated radio.
type SimNetwork struct {
	SSID     string `mapstructure:"ssid" yaml:"ssid"`
	Password string `mapstructure:"password" yaml:"password"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Defaults returns the configuration the device firmware ships with.
func Defaults() Config {
	return Config{
		AccessPoint: AccessPointConfig{
			SSID:             "ESP32_AP",
			Password:         "pass",
			Channel:          1,
			Hidden:           false,
			MaxConnections:   5,
			BeaconIntervalMS: 100,
			IP:               "192.168.0.1",
			Gateway:          "192.168.0.1",
			Netmask:          "255.255.255.0",
			Bandwidth:        "ht20",
		},
		Station: StationConfig{
			PowerSave: "none",
		},
		Manager: ManagerConfig{
			MaxRetries:         wifiapp.DefaultMaxRetries,
			QueueCapacity:      wifiapp.DefaultChannelCapacity,
			ForgetOnDisconnect: true,
		},
		Portal: PortalConfig{
			Listen:       "192.168.0.1:80",
			Advertise:    true,
			Instance:     "wifiapp",
			ConnectRate:  1,
			ConnectBurst: 3,
			Metrics:      true,
		},
		Sim: SimConfig{
			Latency: "500ms",
			Pool:    "10.42.0.0/24",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SimNetworks returns the simulated networks as an SSID to password map.
func (c *Config) SimNetworks() map[string]string {
	networks := make(map[string]string, len(c.Sim.Networks))
	for _, n := range c.Sim.Networks {
		networks[n.SSID] = n.Password
	}
	return networks
}

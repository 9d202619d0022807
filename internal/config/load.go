package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides.
const EnvPrefix = "WIFIAPP"

// Load reads configuration from path (or the default location when empty),
// overlays WIFIAPP_* environment variables and fills the rest from Defaults.
// A missing file is not an error unless path was given explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := GetConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	// WIFIAPP_ACCESS_POINT_SSID=Lab overrides access_point.ssid
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	return &cfg, nil
}

// setDefaults registers every key so environment overrides apply even when
// the key is absent from the file.
func setDefaults(v *viper.Viper) {
	d := Defaults()

	v.SetDefault("access_point.ssid", d.AccessPoint.SSID)
	v.SetDefault("access_point.password", d.AccessPoint.Password)
	v.SetDefault("access_point.channel", d.AccessPoint.Channel)
	v.SetDefault("access_point.hidden", d.AccessPoint.Hidden)
	v.SetDefault("access_point.max_connections", d.AccessPoint.MaxConnections)
	v.SetDefault("access_point.beacon_interval_ms", d.AccessPoint.BeaconIntervalMS)
	v.SetDefault("access_point.ip", d.AccessPoint.IP)
	v.SetDefault("access_point.gateway", d.AccessPoint.Gateway)
	v.SetDefault("access_point.netmask", d.AccessPoint.Netmask)
	v.SetDefault("access_point.bandwidth", d.AccessPoint.Bandwidth)

	v.SetDefault("station.power_save", d.Station.PowerSave)
	v.SetDefault("station.hostname", d.Station.Hostname)

	v.SetDefault("manager.max_retries", d.Manager.MaxRetries)
	v.SetDefault("manager.queue_capacity", d.Manager.QueueCapacity)
	v.SetDefault("manager.forget_on_disconnect", d.Manager.ForgetOnDisconnect)

	v.SetDefault("portal.listen", d.Portal.Listen)
	v.SetDefault("portal.advertise", d.Portal.Advertise)
	v.SetDefault("portal.instance", d.Portal.Instance)
	v.SetDefault("portal.connect_rate", d.Portal.ConnectRate)
	v.SetDefault("portal.connect_burst", d.Portal.ConnectBurst)
	v.SetDefault("portal.metrics", d.Portal.Metrics)

	v.SetDefault("credentials.path", d.Credentials.Path)

	v.SetDefault("sim.latency", d.Sim.Latency)
	v.SetDefault("sim.pool", d.Sim.Pool)

	v.SetDefault("logging.level", d.Logging.Level)
}

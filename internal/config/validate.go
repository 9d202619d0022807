package config

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/muurk/wifiapp/internal/logging"
	"github.com/muurk/wifiapp/internal/netif"
)

// NetifAccessPoint converts the AP section to interface parameters.
func (c *Config) NetifAccessPoint() (netif.AccessPointConfig, error) {
	ap := c.AccessPoint

	ip, err := netip.ParseAddr(ap.IP)
	if err != nil {
		return netif.AccessPointConfig{}, fmt.Errorf("access_point.ip: %w", err)
	}
	gw, err := netip.ParseAddr(ap.Gateway)
	if err != nil {
		return netif.AccessPointConfig{}, fmt.Errorf("access_point.gateway: %w", err)
	}
	mask, err := netip.ParseAddr(ap.Netmask)
	if err != nil {
		return netif.AccessPointConfig{}, fmt.Errorf("access_point.netmask: %w", err)
	}
	bw, err := netif.ParseBandwidth(ap.Bandwidth)
	if err != nil {
		return netif.AccessPointConfig{}, fmt.Errorf("access_point.bandwidth: %w", err)
	}

	return netif.AccessPointConfig{
		SSID:           ap.SSID,
		Password:       ap.Password,
		Channel:        ap.Channel,
		Hidden:         ap.Hidden,
		MaxConnections: ap.MaxConnections,
		BeaconInterval: time.Duration(ap.BeaconIntervalMS) * time.Millisecond,
		IP:             ip,
		Gateway:        gw,
		Netmask:        mask,
		Bandwidth:      bw,
	}, nil
}

// NetifStation converts the station section to interface parameters.
func (c *Config) NetifStation() (netif.StationConfig, error) {
	ps, err := netif.ParsePowerSave(c.Station.PowerSave)
	if err != nil {
		return netif.StationConfig{}, fmt.Errorf("station.power_save: %w", err)
	}
	return netif.StationConfig{PowerSave: ps, Hostname: c.Station.Hostname}, nil
}

// SimLatency parses sim.latency.
func (c *Config) SimLatency() (time.Duration, error) {
	if c.Sim.Latency == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Sim.Latency)
	if err != nil {
		return 0, fmt.Errorf("sim.latency: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("sim.latency: must not be negative")
	}
	return d, nil
}

// SimPool parses sim.pool.
func (c *Config) SimPool() (netip.Prefix, error) {
	if c.Sim.Pool == "" {
		return netip.Prefix{}, nil
	}
	p, err := netip.ParsePrefix(c.Sim.Pool)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("sim.pool: %w", err)
	}
	return p, nil
}

// Validate checks the whole configuration and returns every problem found.
func (c *Config) Validate() []error {
	var errs []error

	if ap, err := c.NetifAccessPoint(); err != nil {
		errs = append(errs, err)
	} else {
		errs = append(errs, netif.ValidateAccessPointConfig(ap)...)
	}

	if sta, err := c.NetifStation(); err != nil {
		errs = append(errs, err)
	} else {
		errs = append(errs, netif.ValidateStationConfig(sta)...)
	}

	if c.Manager.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("manager.max_retries must not be negative, got %d", c.Manager.MaxRetries))
	}
	if c.Manager.QueueCapacity < 1 {
		errs = append(errs, fmt.Errorf("manager.queue_capacity must be at least 1, got %d", c.Manager.QueueCapacity))
	}

	if c.Portal.Listen == "" {
		errs = append(errs, fmt.Errorf("portal.listen cannot be empty"))
	}
	if c.Portal.ConnectRate <= 0 {
		errs = append(errs, fmt.Errorf("portal.connect_rate must be positive, got %v", c.Portal.ConnectRate))
	}
	if c.Portal.ConnectBurst < 1 {
		errs = append(errs, fmt.Errorf("portal.connect_burst must be at least 1, got %d", c.Portal.ConnectBurst))
	}

	if _, err := c.SimLatency(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.SimPool(); err != nil {
		errs = append(errs, err)
	}
	for i, n := range c.Sim.Networks {
		if n.SSID == "" {
			errs = append(errs, fmt.Errorf("sim.networks[%d]: ssid cannot be empty", i))
		}
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}

	return errs
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/muurk/wifiapp/internal/netif"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS == "linux" {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	}

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if !strings.Contains(configDir, "wifiapp") {
		t.Errorf("GetConfigDir() = %v, should contain 'wifiapp'", configDir)
	}
	if runtime.GOOS == "linux" && configDir != filepath.Join("/tmp/xdg", "wifiapp") {
		t.Errorf("GetConfigDir() = %v, want XDG_CONFIG_HOME/wifiapp", configDir)
	}

	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", path)
	}
}

func TestDefaultsMatchFirmware(t *testing.T) {
	cfg := Defaults()

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("Defaults().Validate() = %v", errs)
	}

	ap, err := cfg.NetifAccessPoint()
	if err != nil {
		t.Fatal(err)
	}
	if ap.SSID != "ESP32_AP" || ap.Password != "pass" || ap.Channel != 1 || ap.Hidden {
		t.Errorf("AP identity = %+v", ap)
	}
	if ap.MaxConnections != 5 || ap.BeaconInterval != 100*time.Millisecond || ap.Bandwidth != netif.BandwidthHT20 {
		t.Errorf("AP radio = %+v", ap)
	}
	if ap.Prefix().String() != "192.168.0.0/24" || ap.Gateway.String() != "192.168.0.1" {
		t.Errorf("AP addressing = %s gw %s", ap.Prefix(), ap.Gateway)
	}

	sta, err := cfg.NetifStation()
	if err != nil || sta.PowerSave != netif.PowerSaveNone {
		t.Errorf("station = %+v, %v", sta, err)
	}
	if cfg.Manager.MaxRetries != 5 || cfg.Manager.QueueCapacity != 3 {
		t.Errorf("manager = %+v", cfg.Manager)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifiapp.yaml")
	data := `
access_point:
  channel: 6
manager:
  max_retries: 3
sim:
  latency: 10ms
  networks:
    - ssid: HomeNet1
      password: secret12
    - ssid: Cafe
      password: ""
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WIFIAPP_ACCESS_POINT_SSID", "LabAP")
	t.Setenv("WIFIAPP_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.File != path {
		t.Errorf("File = %q, want %q", cfg.File, path)
	}
	if cfg.AccessPoint.Channel != 6 || cfg.Manager.MaxRetries != 3 {
		t.Errorf("file values not applied: channel %d retries %d", cfg.AccessPoint.Channel, cfg.Manager.MaxRetries)
	}
	if cfg.AccessPoint.SSID != "LabAP" || cfg.Logging.Level != "debug" {
		t.Errorf("env overrides not applied: ssid %q level %q", cfg.AccessPoint.SSID, cfg.Logging.Level)
	}
	if cfg.AccessPoint.Netmask != "255.255.255.0" || cfg.Manager.QueueCapacity != 3 {
		t.Error("defaults should fill keys missing from the file")
	}

	networks := cfg.SimNetworks()
	if networks["HomeNet1"] != "secret12" || len(networks) != 2 {
		t.Errorf("SimNetworks() = %v", networks)
	}
	if d, err := cfg.SimLatency(); err != nil || d != 10*time.Millisecond {
		t.Errorf("SimLatency() = %v, %v", d, err)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.File != "" {
		t.Errorf("File = %q, want empty", cfg.File)
	}
	if cfg.AccessPoint.SSID != "ESP32_AP" {
		t.Errorf("SSID = %q, want default", cfg.AccessPoint.SSID)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing explicit path should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad ip", func(c *Config) { c.AccessPoint.IP = "192.168.0" }, "access_point.ip"},
		{"bad bandwidth", func(c *Config) { c.AccessPoint.Bandwidth = "ht80" }, "access_point.bandwidth"},
		{"channel out of range", func(c *Config) { c.AccessPoint.Channel = 14 }, "channel"},
		{"bad power save", func(c *Config) { c.Station.PowerSave = "turbo" }, "station.power_save"},
		{"negative retries", func(c *Config) { c.Manager.MaxRetries = -1 }, "manager.max_retries"},
		{"empty queue", func(c *Config) { c.Manager.QueueCapacity = 0 }, "manager.queue_capacity"},
		{"no listen address", func(c *Config) { c.Portal.Listen = "" }, "portal.listen"},
		{"zero rate", func(c *Config) { c.Portal.ConnectRate = 0 }, "portal.connect_rate"},
		{"bad latency", func(c *Config) { c.Sim.Latency = "soon" }, "sim.latency"},
		{"bad pool", func(c *Config) { c.Sim.Pool = "10.42.0.0" }, "sim.pool"},
		{"nameless network", func(c *Config) { c.Sim.Networks = []SimNetwork{{Password: "x"}} }, "sim.networks[0]"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			errs := cfg.Validate()
			if len(errs) == 0 {
				t.Fatal("Validate() returned no errors")
			}
			if !strings.Contains(errors.Join(errs...).Error(), tt.wantErr) {
				t.Errorf("errors %v should mention %q", errs, tt.wantErr)
			}
		})
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if written != path {
		t.Errorf("WriteDefault() path = %q, want %q", written, path)
	}
	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("mode = %v, want 0600", info.Mode().Perm())
		}
	}

	if _, err := WriteDefault(path, false); !errors.Is(err, ErrConfigExists) {
		t.Errorf("second WriteDefault() error = %v, want ErrConfigExists", err)
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Errorf("forced WriteDefault() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain")
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() of written defaults error = %v", err)
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("written defaults invalid: %v", errs)
	}
	if cfg.AccessPoint != Defaults().AccessPoint || cfg.Manager != Defaults().Manager {
		t.Errorf("round trip mismatch: %+v", cfg)
	}
}

func TestCredentialsPath(t *testing.T) {
	cfg := Defaults()
	cfg.Credentials.Path = "/var/lib/wifiapp/creds.yaml"
	if p, _ := cfg.CredentialsPath(); p != "/var/lib/wifiapp/creds.yaml" {
		t.Errorf("CredentialsPath() = %q", p)
	}

	cfg.Credentials.Path = ""
	p, err := cfg.CredentialsPath()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(p) != "credentials.yaml" {
		t.Errorf("CredentialsPath() = %q, want .../credentials.yaml", p)
	}
}

package netif

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/muurk/wifiapp/internal/credentials"
)

type fakeHandle struct {
	name   string
	closes int
}

func (h *fakeHandle) Name() string { return h.name }
func (h *fakeHandle) Close() error { h.closes++; return nil }

type fakeStation struct{ fakeHandle }

func (s *fakeStation) Configure(credentials.Credentials) error { return nil }
func (s *fakeStation) Connect(uint64) error                    { return nil }
func (s *fakeStation) Disconnect() error                       { return nil }

type fakeAP struct {
	fakeHandle
	cfg AccessPointConfig
}

func (a *fakeAP) Config() AccessPointConfig { return a.cfg }

type fakeDriver struct {
	station    *fakeStation
	ap         *fakeAP
	stationErr error
	apErr      error
	calls      int
}

func (d *fakeDriver) NewStation(StationConfig, EventHandler) (Station, error) {
	d.calls++
	if d.stationErr != nil {
		return nil, d.stationErr
	}
	d.station = &fakeStation{fakeHandle{name: "sta0"}}
	return d.station, nil
}

func (d *fakeDriver) NewAccessPoint(cfg AccessPointConfig) (AccessPoint, error) {
	d.calls++
	if d.apErr != nil {
		return nil, d.apErr
	}
	d.ap = &fakeAP{fakeHandle: fakeHandle{name: "ap0"}, cfg: cfg}
	return d.ap, nil
}

func testAPConfig() AccessPointConfig {
	return AccessPointConfig{
		SSID:           "ESP32_AP",
		Password:       "pass",
		Channel:        1,
		MaxConnections: 5,
		BeaconInterval: 100 * time.Millisecond,
		IP:             netip.MustParseAddr("192.168.0.1"),
		Gateway:        netip.MustParseAddr("192.168.0.1"),
		Netmask:        netip.MustParseAddr("255.255.255.0"),
		Bandwidth:      BandwidthHT20,
	}
}

func TestRegistryLifecycle(t *testing.T) {
	driver := &fakeDriver{}
	reg := NewRegistry(driver)

	sta, ap, err := reg.Initialize(context.Background(), StationConfig{}, testAPConfig(), nil)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if sta != reg.Station() || ap != reg.AccessPoint() {
		t.Error("registry should hand out the handles it owns")
	}

	if _, _, err := reg.Initialize(context.Background(), StationConfig{}, testAPConfig(), nil); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Initialize() error = %v, want ErrAlreadyInitialized", err)
	}
	if driver.calls != 2 {
		t.Errorf("driver calls = %d, want 2 (interfaces created exactly once)", driver.calls)
	}

	if err := reg.Teardown(); err != nil {
		t.Fatalf("Teardown() error = %v", err)
	}
	if err := reg.Teardown(); err != nil {
		t.Fatalf("second Teardown() error = %v", err)
	}
	if driver.station.closes != 1 || driver.ap.closes != 1 {
		t.Errorf("closes = sta %d ap %d, want 1 each", driver.station.closes, driver.ap.closes)
	}
	if reg.Station() != nil || reg.AccessPoint() != nil {
		t.Error("handles should be released after Teardown()")
	}
}

func TestRegistryTeardownBeforeInitialize(t *testing.T) {
	if err := NewRegistry(&fakeDriver{}).Teardown(); err != nil {
		t.Errorf("Teardown() before Initialize() = %v, want nil", err)
	}
}

func TestRegistryInitErrors(t *testing.T) {
	badAP := testAPConfig()
	badAP.Channel = 14

	tests := []struct {
		name      string
		driver    *fakeDriver
		ap        AccessPointConfig
		wantStage string
	}{
		{"invalid config", &fakeDriver{}, badAP, "validate"},
		{"station failure", &fakeDriver{stationErr: errors.New("no radio")}, testAPConfig(), "station"},
		{"ap failure", &fakeDriver{apErr: errors.New("no softap")}, testAPConfig(), "access_point"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry(tt.driver)
			_, _, err := reg.Initialize(context.Background(), StationConfig{}, tt.ap, nil)

			var initErr *InitError
			if !errors.As(err, &initErr) {
				t.Fatalf("Initialize() error = %v, want *InitError", err)
			}
			if initErr.Stage != tt.wantStage {
				t.Errorf("Stage = %q, want %q", initErr.Stage, tt.wantStage)
			}
			if tt.wantStage == "access_point" && tt.driver.station.closes != 1 {
				t.Error("station should be released when the AP cannot be created")
			}
			if tt.wantStage == "validate" && tt.driver.calls != 0 {
				t.Error("driver must not be called with an invalid config")
			}
		})
	}
}

func TestValidateAccessPointConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AccessPointConfig)
		wantErr string
	}{
		{"defaults valid", func(*AccessPointConfig) {}, ""},
		{"empty ssid", func(c *AccessPointConfig) { c.SSID = "" }, "ssid cannot be empty"},
		{"long ssid", func(c *AccessPointConfig) { c.SSID = strings.Repeat("a", 33) }, "ssid too long"},
		{"long password", func(c *AccessPointConfig) { c.Password = strings.Repeat("a", 65) }, "password too long"},
		{"channel zero", func(c *AccessPointConfig) { c.Channel = 0 }, "channel"},
		{"too many clients", func(c *AccessPointConfig) { c.MaxConnections = 11 }, "max connections"},
		{"short beacon", func(c *AccessPointConfig) { c.BeaconInterval = 50 * time.Millisecond }, "beacon"},
		{"holey netmask", func(c *AccessPointConfig) { c.Netmask = netip.MustParseAddr("255.0.255.0") }, "netmask"},
		{"gateway outside subnet", func(c *AccessPointConfig) { c.Gateway = netip.MustParseAddr("10.0.0.1") }, "outside"},
		{"ipv6 address", func(c *AccessPointConfig) { c.IP = netip.MustParseAddr("fe80::1") }, "IPv4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testAPConfig()
			tt.mutate(&cfg)
			errs := ValidateAccessPointConfig(cfg)

			if tt.wantErr == "" {
				if len(errs) != 0 {
					t.Errorf("unexpected errors: %v", errs)
				}
				return
			}
			if !strings.Contains(errors.Join(errs...).Error(), tt.wantErr) {
				t.Errorf("errors %v should mention %q", errs, tt.wantErr)
			}
		})
	}
}

func TestPrefix(t *testing.T) {
	if got := testAPConfig().Prefix().String(); got != "192.168.0.0/24" {
		t.Errorf("Prefix() = %s, want 192.168.0.0/24", got)
	}
}

func TestParseBandwidthAndPowerSave(t *testing.T) {
	if bw, err := ParseBandwidth("ht40"); err != nil || bw != BandwidthHT40 {
		t.Errorf("ParseBandwidth(ht40) = %v, %v", bw, err)
	}
	if _, err := ParseBandwidth("80"); err == nil {
		t.Error("ParseBandwidth(80) should fail")
	}
	if ps, err := ParsePowerSave("none"); err != nil || ps != PowerSaveNone {
		t.Errorf("ParsePowerSave(none) = %v, %v", ps, err)
	}
	if _, err := ParsePowerSave("turbo"); err == nil {
		t.Error("ParsePowerSave(turbo) should fail")
	}
}

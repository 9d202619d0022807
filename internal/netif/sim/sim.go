package sim

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/muurk/wifiapp/internal/credentials"
	"github.com/muurk/wifiapp/internal/logging"
	"github.com/muurk/wifiapp/internal/netif"
	"go.uber.org/zap"
)

// Disconnect reasons reported in LinkEvent.Reason.
const (
	ReasonNoAPFound   = "no_ap_found"
	ReasonAuthFail    = "auth_fail"
	ReasonAssocLeave  = "assoc_leave"
	ReasonBeaconLoss  = "beacon_timeout"
	DefaultAddressNet = "10.42.0.0/24"
)

// ErrClosed is returned by commands on a closed interface.
var ErrClosed = errors.New("interface closed")

// ErrNotConfigured is returned by Connect before Configure.
var ErrNotConfigured = errors.New("station not configured")

// Config describes the simulated radio environment.
type Config struct {
	// Networks maps visible SSIDs to their passwords ("" for open networks).
	Networks map[string]string

	// Latency is the time between a command and its link event.
	Latency time.Duration

	// AddressPool is the subnet leases are handed out from.
	AddressPool netip.Prefix
}

// Driver is an in-process netif.Driver.
type Driver struct {
	cfg Config

	mu       sync.Mutex
	networks map[string]string
	nextHost uint8
}

// New creates a simulated driver.
func New(cfg Config) *Driver {
	if !cfg.AddressPool.IsValid() {
		cfg.AddressPool = netip.MustParsePrefix(DefaultAddressNet)
	}
	networks := make(map[string]string, len(cfg.Networks))
	for ssid, pass := range cfg.Networks {
		networks[ssid] = pass
	}
	return &Driver{cfg: cfg, networks: networks, nextHost: 10}
}

// SetNetwork adds or replaces a visible network.
func (d *Driver) SetNetwork(ssid, password string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.networks[ssid] = password
}

// RemoveNetwork makes a network disappear.
func (d *Driver) RemoveNetwork(ssid string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.networks, ssid)
}

func (d *Driver) lookup(ssid string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pass, ok := d.networks[ssid]
	return pass, ok
}

func (d *Driver) lease() netip.Addr {
	d.mu.Lock()
	defer d.mu.Unlock()
	addr := d.cfg.AddressPool.Masked().Addr()
	for i := uint8(0); i < d.nextHost; i++ {
		addr = addr.Next()
	}
	d.nextHost++
	if d.nextHost == 0 || d.nextHost > 250 {
		d.nextHost = 10
	}
	return addr
}

// NewStation implements netif.Driver.
func (d *Driver) NewStation(cfg netif.StationConfig, events netif.EventHandler) (netif.Station, error) {
	if events == nil {
		events = func(netif.LinkEvent) {}
	}
	return &Station{driver: d, cfg: cfg, events: events}, nil
}

// NewAccessPoint implements netif.Driver.
func (d *Driver) NewAccessPoint(cfg netif.AccessPointConfig) (netif.AccessPoint, error) {
	logging.Info("Soft-AP started",
		zap.String("ssid", cfg.SSID),
		zap.Int("channel", cfg.Channel),
		zap.Bool("hidden", cfg.Hidden),
		zap.Int("max_connections", cfg.MaxConnections),
		zap.Duration("beacon_interval", cfg.BeaconInterval),
		zap.String("ip", cfg.IP.String()),
		zap.String("bandwidth", cfg.Bandwidth.String()),
	)
	return &AccessPoint{cfg: cfg}, nil
}

// Station is a simulated client interface.
type Station struct {
	driver *Driver
	cfg    netif.StationConfig
	events netif.EventHandler

	mu        sync.Mutex
	creds     credentials.Credentials
	session   uint64
	attempt   uint64 // bumped to cancel a pending attempt
	pending   *time.Timer
	connected bool
	closed    bool
	wg        sync.WaitGroup
}

// Name implements netif.Netif.
func (s *Station) Name() string { return "sta0" }

// Configure stores the credentials used by the next Connect.
func (s *Station) Configure(c credentials.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.creds = c
	return nil
}

// Connect starts an association attempt and reports the result later.
func (s *Station) Connect(session uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.creds.IsZero() {
		return ErrNotConfigured
	}

	s.cancelPendingLocked()
	s.session = session
	s.connected = false
	s.attempt++
	attempt := s.attempt
	creds := s.creds

	s.schedule(func() {
		s.finishAttempt(attempt, session, creds)
	})
	return nil
}

func (s *Station) finishAttempt(attempt, session uint64, creds credentials.Credentials) {
	pass, visible := s.driver.lookup(creds.SSID)

	var ev netif.LinkEvent
	switch {
	case !visible:
		ev = netif.LinkEvent{Kind: netif.LinkDisconnected, Session: session, Reason: ReasonNoAPFound}
	case pass != creds.Password:
		ev = netif.LinkEvent{Kind: netif.LinkDisconnected, Session: session, Reason: ReasonAuthFail}
	default:
		ev = netif.LinkEvent{Kind: netif.LinkGotIP, Session: session, IP: s.driver.lease()}
	}

	s.mu.Lock()
	if s.closed || s.attempt != attempt {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	s.connected = ev.Kind == netif.LinkGotIP
	s.mu.Unlock()

	s.events(ev)
}

// Disconnect drops the link or aborts a pending attempt. A Disconnected event
// follows when there was something to disconnect.
func (s *Station) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	hadLink := s.connected || s.pending != nil
	s.cancelPendingLocked()
	s.attempt++
	s.connected = false
	if !hadLink {
		return nil
	}

	ev := netif.LinkEvent{Kind: netif.LinkDisconnected, Session: s.session, Reason: ReasonAssocLeave}
	s.schedule(func() { s.events(ev) })
	return nil
}

// Drop simulates the AP going away while connected.
func (s *Station) Drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.connected {
		return
	}
	s.connected = false
	s.attempt++
	ev := netif.LinkEvent{Kind: netif.LinkDisconnected, Session: s.session, Reason: ReasonBeaconLoss}
	s.schedule(func() { s.events(ev) })
}

// Connected reports whether the simulated link is up.
func (s *Station) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Close stops pending work. It is idempotent.
func (s *Station) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancelPendingLocked()
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// schedule runs fn after the configured latency. Callers hold s.mu.
func (s *Station) schedule(fn func()) {
	s.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(s.driver.cfg.Latency, func() {
		defer s.wg.Done()
		fn()
		s.mu.Lock()
		if s.pending == t {
			s.pending = nil
		}
		s.mu.Unlock()
	})
	s.pending = t
}

// cancelPendingLocked stops a timer that has not fired yet. Callers hold s.mu.
func (s *Station) cancelPendingLocked() {
	if s.pending != nil && s.pending.Stop() {
		s.wg.Done()
	}
	s.pending = nil
}

// AccessPoint is a simulated soft-AP.
type AccessPoint struct {
	cfg    netif.AccessPointConfig
	mu     sync.Mutex
	closed bool
}

// Name implements netif.Netif.
func (a *AccessPoint) Name() string { return "ap0" }

// Config returns the configuration the AP was started with.
func (a *AccessPoint) Config() netif.AccessPointConfig { return a.cfg }

// Close stops the AP. It is idempotent.
func (a *AccessPoint) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.closed {
		a.closed = true
		logging.Info("Soft-AP stopped", zap.String("ssid", a.cfg.SSID))
	}
	return nil
}

// String describes the simulated environment.
func (d *Driver) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fmt.Sprintf("sim radio (%d networks, latency %v, pool %s)", len(d.networks), d.cfg.Latency, d.cfg.AddressPool)
}

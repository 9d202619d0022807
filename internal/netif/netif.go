package netif

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/muurk/wifiapp/internal/credentials"
)

// Bandwidth is the AP channel width.
type Bandwidth int

const (
	// BandwidthHT20 is a 20 MHz channel
	BandwidthHT20 Bandwidth = iota
	// BandwidthHT40 is a 40 MHz channel
	BandwidthHT40
)

// String returns the configuration name of the bandwidth
func (b Bandwidth) String() string {
	switch b {
	case BandwidthHT20:
		return "ht20"
	case BandwidthHT40:
		return "ht40"
	default:
		return fmt.Sprintf("Bandwidth(%d)", int(b))
	}
}

// ParseBandwidth parses "ht20"/"20" or "ht40"/"40".
func ParseBandwidth(s string) (Bandwidth, error) {
	switch s {
	case "ht20", "20", "20mhz":
		return BandwidthHT20, nil
	case "ht40", "40", "40mhz":
		return BandwidthHT40, nil
	default:
		return BandwidthHT20, fmt.Errorf("unknown bandwidth %q (want ht20 or ht40)", s)
	}
}

// PowerSave is the station modem power-save mode.
type PowerSave int

const (
	// PowerSaveNone keeps the radio awake
	PowerSaveNone PowerSave = iota
	// PowerSaveMinModem wakes for every DTIM
	PowerSaveMinModem
	// PowerSaveMaxModem wakes on the listen interval
	PowerSaveMaxModem
)

// String returns the configuration name of the power-save mode
func (p PowerSave) String() string {
	switch p {
	case PowerSaveNone:
		return "none"
	case PowerSaveMinModem:
		return "min_modem"
	case PowerSaveMaxModem:
		return "max_modem"
	default:
		return fmt.Sprintf("PowerSave(%d)", int(p))
	}
}

// ParsePowerSave parses a power-save mode name.
func ParsePowerSave(s string) (PowerSave, error) {
	switch s {
	case "none", "":
		return PowerSaveNone, nil
	case "min_modem", "min":
		return PowerSaveMinModem, nil
	case "max_modem", "max":
		return PowerSaveMaxModem, nil
	default:
		return PowerSaveNone, fmt.Errorf("unknown power save mode %q", s)
	}
}

// AccessPointConfig parameterizes the soft-AP interface.
type AccessPointConfig struct {
	SSID           string
	Password       string
	Channel        int
	Hidden         bool
	MaxConnections int
	BeaconInterval time.Duration
	IP             netip.Addr
	Gateway        netip.Addr
	Netmask        netip.Addr
	Bandwidth      Bandwidth
}

// Prefix returns the AP subnet as a prefix.
func (c AccessPointConfig) Prefix() netip.Prefix {
	bits, ok := maskBits(c.Netmask)
	if !ok {
		return netip.Prefix{}
	}
	return netip.PrefixFrom(c.IP, bits).Masked()
}

// StationConfig parameterizes the station interface.
type StationConfig struct {
	PowerSave PowerSave
	Hostname  string
}

// LinkEventKind identifies a link notification from the driver.
type LinkEventKind int

const (
	// LinkGotIP reports association plus a DHCP lease
	LinkGotIP LinkEventKind = iota
	// LinkDisconnected reports a failed attempt or a dropped link
	LinkDisconnected
)

// String returns a human-readable name for the event kind
func (k LinkEventKind) String() string {
	switch k {
	case LinkGotIP:
		return "got_ip"
	case LinkDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("LinkEventKind(%d)", int(k))
	}
}

// LinkEvent is delivered by a driver when the station link changes.
// Session echoes the value passed to Station.Connect for that attempt.
type LinkEvent struct {
	Kind    LinkEventKind
	Session uint64
	IP      netip.Addr
	Reason  string
}

// EventHandler receives link events. Drivers call it from their own
// goroutines and it must not block.
type EventHandler func(LinkEvent)

// Netif is a network interface handle.
type Netif interface {
	Name() string
	Close() error
}

// Station is the client-mode interface. Connect and Disconnect return as soon
// as the command is issued; outcomes arrive as LinkEvents.
type Station interface {
	Netif
	Configure(c credentials.Credentials) error
	Connect(session uint64) error
	Disconnect() error
}

// AccessPoint is the soft-AP interface.
type AccessPoint interface {
	Netif
	Config() AccessPointConfig
}

// Driver creates interface handles on the radio/IP stack.
type Driver interface {
	NewStation(cfg StationConfig, events EventHandler) (Station, error)
	NewAccessPoint(cfg AccessPointConfig) (AccessPoint, error)
}

package netif

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"net/netip"
	"time"

	"github.com/muurk/wifiapp/internal/credentials"
)

// Limits for soft-AP parameters.
const (
	MinChannel        = 1
	MaxChannel        = 13
	MaxAPConnections  = 10
	MinBeaconInterval = 100 * time.Millisecond
	MaxBeaconInterval = 60000 * time.Millisecond
)

// maskBits returns the prefix length of a contiguous IPv4 netmask.
func maskBits(mask netip.Addr) (int, bool) {
	if !mask.Is4() {
		return 0, false
	}
	b := mask.As4()
	m := binary.BigEndian.Uint32(b[:])
	inv := ^m
	if inv&(inv+1) != 0 {
		return 0, false
	}
	return bits.OnesCount32(m), true
}

// ValidateAccessPointConfig checks AP parameters before any driver call.
// Returns a slice of validation errors (empty if valid).
func ValidateAccessPointConfig(c AccessPointConfig) []error {
	var errs []error

	if c.SSID == "" {
		errs = append(errs, fmt.Errorf("ap ssid cannot be empty"))
	} else if len(c.SSID) > credentials.MaxSSIDLength {
		errs = append(errs, fmt.Errorf("ap ssid too long (max %d bytes): %d bytes", credentials.MaxSSIDLength, len(c.SSID)))
	}
	if len(c.Password) > credentials.MaxPasswordLength {
		errs = append(errs, fmt.Errorf("ap password too long (max %d bytes): %d bytes", credentials.MaxPasswordLength, len(c.Password)))
	}
	if c.Channel < MinChannel || c.Channel > MaxChannel {
		errs = append(errs, fmt.Errorf("ap channel must be %d-%d, got %d", MinChannel, MaxChannel, c.Channel))
	}
	if c.MaxConnections < 1 || c.MaxConnections > MaxAPConnections {
		errs = append(errs, fmt.Errorf("ap max connections must be 1-%d, got %d", MaxAPConnections, c.MaxConnections))
	}
	if c.BeaconInterval < MinBeaconInterval || c.BeaconInterval > MaxBeaconInterval {
		errs = append(errs, fmt.Errorf("ap beacon interval must be %v-%v, got %v", MinBeaconInterval, MaxBeaconInterval, c.BeaconInterval))
	}
	if c.Bandwidth != BandwidthHT20 && c.Bandwidth != BandwidthHT40 {
		errs = append(errs, fmt.Errorf("ap bandwidth invalid: %v", c.Bandwidth))
	}

	if !c.IP.Is4() {
		errs = append(errs, fmt.Errorf("ap ip must be an IPv4 address, got %q", c.IP))
	}
	if !c.Gateway.Is4() {
		errs = append(errs, fmt.Errorf("ap gateway must be an IPv4 address, got %q", c.Gateway))
	}
	if _, ok := maskBits(c.Netmask); !ok {
		errs = append(errs, fmt.Errorf("ap netmask must be a contiguous IPv4 mask, got %q", c.Netmask))
	} else if c.IP.Is4() && c.Gateway.Is4() && !c.Prefix().Contains(c.Gateway) {
		errs = append(errs, fmt.Errorf("ap gateway %s is outside %s", c.Gateway, c.Prefix()))
	}

	return errs
}

// ValidateStationConfig checks station parameters before any driver call.
func ValidateStationConfig(c StationConfig) []error {
	var errs []error
	switch c.PowerSave {
	case PowerSaveNone, PowerSaveMinModem, PowerSaveMaxModem:
	default:
		errs = append(errs, fmt.Errorf("station power save mode invalid: %v", c.PowerSave))
	}
	return errs
}

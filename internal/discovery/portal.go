package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// TXT record keys.
const (
	TXTKeyID      = "id"
	TXTKeyVersion = "ver"
	TXTKeyAPSSID  = "ap"
	TXTKeyPath    = "path"
)

// Portal is a discovered manager instance.
type Portal struct {
	// Instance is the mDNS instance name (e.g. "wifiapp")
	Instance string

	// ID is the per-process instance id from the TXT record
	ID string

	// Hostname is the mDNS hostname (e.g. "device.local.")
	Hostname string

	// IP is the IPv4 address, or IPv6 when no IPv4 was announced
	IP string

	// Port is the portal HTTP port
	Port int

	// Metadata contains all TXT record entries
	Metadata map[string]string

	// DiscoveredAt is when the portal answered
	DiscoveredAt time.Time
}

// String returns a human-readable description
func (p *Portal) String() string {
	if ap := p.GetMetadata(TXTKeyAPSSID); ap != "" {
		return fmt.Sprintf("%s (%s) at %s:%d, AP %q", p.Instance, p.Hostname, p.IP, p.Port, ap)
	}
	return fmt.Sprintf("%s (%s) at %s:%d", p.Instance, p.Hostname, p.IP, p.Port)
}

// BaseURL returns the portal HTTP base URL
func (p *Portal) BaseURL() string {
	return "http://" + net.JoinHostPort(p.IP, strconv.Itoa(p.Port))
}

// Version returns the advertised manager version
func (p *Portal) Version() string {
	return p.GetMetadata(TXTKeyVersion)
}

// GetMetadata retrieves a TXT value by key, or returns empty string if not found
func (p *Portal) GetMetadata(key string) string {
	if p.Metadata == nil {
		return ""
	}
	return p.Metadata[key]
}

// Package discovery advertises and finds Wi-Fi manager portals over mDNS.
//
// A running manager registers a "_wifiapp._tcp" service whose TXT record
// carries the instance id, version and soft-AP SSID. The Scanner browses for
// those services so the CLI can reach a portal without knowing its address.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	scanner.Timeout = 3 * time.Second
//	portals, err := scanner.Scan(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, p := range portals {
//	    fmt.Println(p)
//	}
//
// # Network Requirements
//
// Multicast must be available on the interface and UDP port 5353 open. Both
// Scan and Advertise are safe for concurrent use.
package discovery

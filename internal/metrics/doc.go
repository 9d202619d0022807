// Package metrics exposes Prometheus counters and gauges for the Wi-Fi manager.
//
// A Collector registers on the Registerer it is given, so tests can use a
// fresh prometheus.NewRegistry() instead of the global default. A nil
// *Collector is valid and records nothing.
package metrics

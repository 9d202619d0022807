package discovery

import (
	"fmt"
	"sort"
	"sync"

	"github.com/grandcat/zeroconf"
	"github.com/muurk/wifiapp/internal/logging"
	"go.uber.org/zap"
)

// Advertisement is a registered mDNS service.
type Advertisement struct {
	instance string
	server   *zeroconf.Server
	once     sync.Once
}

// BuildTXT renders metadata as sorted "key=value" strings.
func BuildTXT(metadata map[string]string) []string {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	txt := make([]string, 0, len(keys))
	for _, k := range keys {
		txt = append(txt, k+"="+metadata[k])
	}
	return txt
}

// Advertise registers the portal on all multicast interfaces.
func Advertise(instance string, port int, metadata map[string]string) (*Advertisement, error) {
	if instance == "" {
		return nil, fmt.Errorf("mDNS instance name cannot be empty")
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port %d", port)
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, BuildTXT(metadata), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising portal via mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)

	return &Advertisement{instance: instance, server: server}, nil
}

// Shutdown withdraws the advertisement. It is safe to call more than once.
func (a *Advertisement) Shutdown() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		a.server.Shutdown()
		logging.Info("Stopped mDNS advertisement", zap.String("instance", a.instance))
	})
}

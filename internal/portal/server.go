package portal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/muurk/wifiapp/internal/discovery"
	"github.com/muurk/wifiapp/internal/logging"
	"github.com/muurk/wifiapp/internal/version"
	"github.com/muurk/wifiapp/internal/wifiapp"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultListen is the soft-AP address the portal binds to
	DefaultListen = "192.168.0.1:80"

	// DefaultInstance is the mDNS instance name
	DefaultInstance = "wifiapp"

	shutdownTimeout   = 5 * time.Second
	limiterCleanup    = time.Minute
	limiterMaxAge     = 10 * time.Minute
	readHeaderTimeout = 10 * time.Second
)

var (
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("portal already started")
	// ErrClosed is returned by Start after Shutdown.
	ErrClosed = errors.New("portal shut down")
)

// Config holds the portal settings.
type Config struct {
	Listen    string
	Advertise bool
	Instance  string

	// APSSID is published in the mDNS TXT record so clients can tell portals apart
	APSSID string

	// ConnectRate and ConnectBurst bound POST /api/wifi/connect per client
	// address. A rate of zero disables the limit.
	ConnectRate  float64
	ConnectBurst int

	// Metrics enables GET /metrics, served from Gatherer (or the default registry)
	Metrics  bool
	Gatherer prometheus.Gatherer
}

// Server is the configuration portal. It implements wifiapp.HTTPServer and
// wifiapp.StatusObserver.
type Server struct {
	cfg     Config
	sender  wifiapp.Sender
	id      string
	hub     *hub
	limiter *ipRateLimiter
	handler http.Handler
	status  atomic.Pointer[wifiapp.Status]

	mu         sync.Mutex
	started    bool
	httpServer *http.Server
	listener   net.Listener
	adv        *discovery.Advertisement
	stop       chan struct{}
	wg         sync.WaitGroup

	shutdownOnce sync.Once
	shutdownErr  error
}

var (
	_ wifiapp.HTTPServer     = (*Server)(nil)
	_ wifiapp.StatusObserver = (*Server)(nil)
)

// New creates a portal that queues requests on sender.
func New(cfg Config, sender wifiapp.Sender) (*Server, error) {
	if sender == nil {
		return nil, errors.New("portal requires a message sender")
	}
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.Instance == "" {
		cfg.Instance = DefaultInstance
	}
	if cfg.ConnectRate < 0 {
		return nil, fmt.Errorf("connect rate must not be negative, got %v", cfg.ConnectRate)
	}
	if cfg.ConnectBurst < 1 {
		cfg.ConnectBurst = 1
	}

	s := &Server{
		cfg:    cfg,
		sender: sender,
		id:     uuid.NewString(),
		hub:    newHub(),
		stop:   make(chan struct{}),
	}
	if cfg.ConnectRate > 0 {
		s.limiter = newIPRateLimiter(rate.Limit(cfg.ConnectRate), cfg.ConnectBurst)
	}
	s.status.Store(&wifiapp.Status{State: wifiapp.StateIdle})
	s.handler = s.routes()
	return s, nil
}

// ID returns the per-process instance id advertised over mDNS.
func (s *Server) ID() string { return s.id }

// Handler returns the portal's HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Status returns the last status the portal was told about.
func (s *Server) Status() wifiapp.Status { return *s.status.Load() }

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start binds the listener and serves in the background. The portal shuts
// down when ctx is done or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	select {
	case <-s.stop:
		return ErrClosed
	default:
	}

	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.started = true

	logging.Info("Portal listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("instance_id", s.id),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Portal server stopped", zap.Error(err))
		}
	}()

	if s.limiter != nil {
		s.wg.Add(1)
		go s.cleanupLimiter()
	}

	if s.cfg.Advertise {
		s.advertise(ln.Addr())
	}

	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := s.Shutdown(shutdownCtx); err != nil {
				logging.Warn("Portal shutdown incomplete", zap.Error(err))
			}
		case <-s.stop:
		}
	}()
	return nil
}

// advertise failures are logged; the portal stays reachable by address.
func (s *Server) advertise(addr net.Addr) {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return
	}
	adv, err := discovery.Advertise(s.cfg.Instance, tcp.Port, map[string]string{
		discovery.TXTKeyID:      s.id,
		discovery.TXTKeyVersion: version.Version,
		discovery.TXTKeyAPSSID:  s.cfg.APSSID,
		discovery.TXTKeyPath:    PathStatus,
	})
	if err != nil {
		logging.Warn("mDNS advertisement unavailable", zap.Error(err))
		return
	}
	s.adv = adv
}

func (s *Server) cleanupLimiter() {
	defer s.wg.Done()
	ticker := time.NewTicker(limiterCleanup)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.limiter.cleanup(limiterMaxAge)
		case <-s.stop:
			return
		}
	}
}

// Shutdown disconnects websocket subscribers, stops advertising and closes
// the HTTP server. Only the first call does any work.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		close(s.stop)

		s.mu.Lock()
		srv, adv := s.httpServer, s.adv
		s.mu.Unlock()

		adv.Shutdown()
		s.hub.closeAll()
		if srv != nil {
			s.shutdownErr = srv.Shutdown(ctx)
		}
		s.wg.Wait()
		logging.Info("Portal stopped")
	})
	return s.shutdownErr
}

// OnStatus implements wifiapp.StatusObserver.
func (s *Server) OnStatus(status wifiapp.Status) {
	s.status.Store(&status)
	s.hub.publish(Event{Type: EventStatus, Status: status, Time: time.Now()})
}

// NotifyConnected implements wifiapp.HTTPServer.
func (s *Server) NotifyConnected(status wifiapp.Status) {
	logging.Info("Station connected", zap.String("ssid", status.SSID), zap.String("ip", status.IP))
	s.hub.publish(Event{Type: EventConnected, Status: status, Time: time.Now()})
}

// NotifyFailed implements wifiapp.HTTPServer.
func (s *Server) NotifyFailed(status wifiapp.Status, reason string) {
	logging.Warn("Station connection failed", zap.String("ssid", status.SSID), zap.String("reason", reason))
	s.hub.publish(Event{Type: EventFailed, Status: status, Reason: reason, Time: time.Now()})
}

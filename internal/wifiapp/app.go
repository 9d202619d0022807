package wifiapp

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/muurk/wifiapp/internal/logging"
	"github.com/muurk/wifiapp/internal/netif"
	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned by Run when the app is already running.
var ErrAlreadyRunning = errors.New("wifi app already running")

// Config holds the immutable parameters of the manager.
type Config struct {
	Station     netif.StationConfig
	AccessPoint netif.AccessPointConfig
	MaxRetries  int

	// ForgetOnDisconnect clears the credential store when the user asks
	// to disconnect.
	ForgetOnDisconnect bool

	// DisconnectTimeout, see MachineOptions.
	DisconnectTimeout time.Duration
}

// DefaultConfig returns the manager defaults without interface settings.
func DefaultConfig() Config {
	return Config{
		MaxRetries:         DefaultMaxRetries,
		ForgetOnDisconnect: true,
		DisconnectTimeout:  DefaultDisconnectTimeout,
	}
}

// Deps are the collaborators of an App. Driver is required.
type Deps struct {
	Driver    netif.Driver
	Store     CredentialStore
	HTTP      HTTPServer
	Observers []StatusObserver
	Metrics   Metrics
}

// App wires the event channel, the interface registry and the state
// machine together and runs the consumer loop.
type App struct {
	cfg     Config
	ch      *Channel
	deps    Deps
	running atomic.Bool
	status  atomic.Pointer[Status]
}

// New creates an App consuming ch.
func New(cfg Config, ch *Channel, deps Deps) (*App, error) {
	if ch == nil {
		return nil, errors.New("event channel is required")
	}
	if deps.Driver == nil {
		return nil, errors.New("radio driver is required")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must not be negative, got %d", cfg.MaxRetries)
	}

	a := &App{cfg: cfg, ch: ch, deps: deps}
	a.status.Store(&Status{State: StateIdle, MaxRetries: cfg.MaxRetries})
	return a, nil
}

// Send enqueues msg on the app's channel.
func (a *App) Send(msg Message) error {
	return a.ch.Send(msg)
}

// Status returns the last published snapshot. Safe for concurrent use.
func (a *App) Status() Status {
	return *a.status.Load()
}

// OnStatus implements StatusObserver.
func (a *App) OnStatus(s Status) {
	a.status.Store(&s)
}

// Run initializes the network interfaces, queues the startup messages and
// handles messages until ctx is cancelled. Interfaces are torn down before
// Run returns. An interface initialization failure is returned as a
// *netif.InitError and no message is handled.
func (a *App) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	registry := netif.NewRegistry(a.deps.Driver)
	station, _, err := registry.Initialize(ctx, a.cfg.Station, a.cfg.AccessPoint, a.onLinkEvent)
	if err != nil {
		return err
	}
	defer func() {
		if err := registry.Teardown(); err != nil {
			logging.Error("Interface teardown failed", zap.Error(err))
		}
	}()

	observers := append([]StatusObserver{a}, a.deps.Observers...)
	machine := NewMachine(MachineOptions{
		Station:            station,
		MaxRetries:         a.cfg.MaxRetries,
		ForgetOnDisconnect: a.cfg.ForgetOnDisconnect,
		Store:              a.deps.Store,
		HTTP:               a.deps.HTTP,
		Observers:          observers,
		Metrics:            a.deps.Metrics,
		Sender:             a.ch,
		DisconnectTimeout:  a.cfg.DisconnectTimeout,
	})

	startup := []Message{StartHTTPServer{}, LoadSavedCredentials{}}
	for i, msg := range startup {
		if err := a.ch.Send(msg); err != nil {
			// Keep startup order: whatever made it onto the queue runs
			// before the rest is handled inline.
			logging.Warn("Startup message not queued, handling inline",
				zap.String("kind", msg.Kind().String()), zap.Error(err))
			a.drainQueued(ctx, machine)
			for _, rest := range startup[i:] {
				machine.Handle(ctx, rest)
			}
			break
		}
	}

	logging.Info("Wi-Fi manager running",
		zap.Int("queue_capacity", a.ch.Cap()),
		zap.Int("max_retries", a.cfg.MaxRetries),
	)

	for {
		msg, err := a.ch.Receive(ctx)
		if err != nil {
			logging.Info("Wi-Fi manager stopping", zap.Error(err))
			return nil
		}
		logging.LogMessage(msg.Kind().String(), a.ch.Len())
		machine.Handle(ctx, msg)
	}
}

// drainQueued handles the messages queued at the time of the call.
func (a *App) drainQueued(ctx context.Context, machine *Machine) {
	for n := a.ch.Len(); n > 0; n-- {
		msg, ok := a.ch.tryReceive()
		if !ok {
			return
		}
		machine.Handle(ctx, msg)
	}
}

// onLinkEvent translates driver notifications into messages. It runs on a
// driver goroutine and never blocks.
func (a *App) onLinkEvent(ev netif.LinkEvent) {
	var msg Message
	switch ev.Kind {
	case netif.LinkGotIP:
		msg = StationConnectedGotIP{Session: ev.Session, IP: ev.IP}
	case netif.LinkDisconnected:
		msg = StationDisconnected{Session: ev.Session, Reason: ev.Reason}
	default:
		logging.Warn("Unknown link event", zap.String("kind", ev.Kind.String()))
		return
	}

	if err := a.ch.Send(msg); err != nil {
		logging.Error("Dropped link event",
			zap.String("kind", msg.Kind().String()),
			zap.Uint64("session", ev.Session),
			zap.Error(err),
		)
	}
}

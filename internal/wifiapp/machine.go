package wifiapp

import (
	"context"
	"net/netip"
	"time"

	"github.com/muurk/wifiapp/internal/credentials"
	"github.com/muurk/wifiapp/internal/logging"
	"github.com/muurk/wifiapp/internal/netif"
	"go.uber.org/zap"
)

// DefaultDisconnectTimeout bounds how long the machine waits in
// StateDisconnecting for the driver to report the link down.
const DefaultDisconnectTimeout = 5 * time.Second

// Machine is the connection state machine. All methods must be called from
// a single goroutine; App.Run is that goroutine in production.
type Machine struct {
	station   netif.Station
	retry     *RetryPolicy
	store     CredentialStore
	http      HTTPServer
	observers []StatusObserver
	metrics   Metrics
	sender    Sender
	forget    bool

	disconnectTimeout time.Duration
	disconnectTimer   *time.Timer

	state       State
	session     uint64
	creds       credentials.Credentials
	source      Source
	ip          netip.Addr
	reason      string
	lastEvent   MessageKind
	handled     uint64
	httpStarted bool

	// backlog holds follow-up messages that could not be queued on sender.
	backlog []Message
}

var _ handler = (*Machine)(nil)

// MachineOptions holds the collaborators of a Machine. Every field except
// Station is optional.
type MachineOptions struct {
	Station            netif.Station
	MaxRetries         int
	ForgetOnDisconnect bool
	Store              CredentialStore
	HTTP               HTTPServer
	Observers          []StatusObserver
	Metrics            Metrics

	// Sender receives follow-up messages, such as the StationDisconnected
	// that replaces a rejected connect command.
	Sender Sender

	// DisconnectTimeout is how long to wait for the link-down event after a
	// user disconnect before completing it anyway. Zero means
	// DefaultDisconnectTimeout, negative disables the fallback. The
	// fallback needs a Sender.
	DisconnectTimeout time.Duration
}

// NewMachine creates a machine in StateIdle.
func NewMachine(opts MachineOptions) *Machine {
	m := &Machine{
		station:   opts.Station,
		retry:     NewRetryPolicy(opts.MaxRetries),
		store:     opts.Store,
		http:      opts.HTTP,
		observers: opts.Observers,
		metrics:   opts.Metrics,
		sender:    opts.Sender,
		forget:    opts.ForgetOnDisconnect,

		disconnectTimeout: opts.DisconnectTimeout,
	}
	if m.disconnectTimeout == 0 {
		m.disconnectTimeout = DefaultDisconnectTimeout
	}
	if m.metrics == nil {
		m.metrics = nopMetrics{}
	}
	return m
}

// Handle runs the transition for msg, then any follow-up messages it
// produced that could not be queued, and publishes the resulting status.
func (m *Machine) Handle(ctx context.Context, msg Message) {
	m.handleOne(ctx, msg)
	for len(m.backlog) > 0 {
		next := m.backlog[0]
		m.backlog = m.backlog[1:]
		m.handleOne(ctx, next)
	}
}

func (m *Machine) handleOne(ctx context.Context, msg Message) {
	m.lastEvent = msg.Kind()
	m.handled++
	msg.dispatch(ctx, m)
	m.metrics.MessageHandled(msg.Kind().String())
	m.metrics.SetRetries(m.retry.Count())
	m.metrics.SetState(m.state.String())
	m.publish()
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Retries returns the current retry count.
func (m *Machine) Retries() int { return m.retry.Count() }

// Session returns the current connect session, 0 before the first one.
func (m *Machine) Session() uint64 { return m.session }

// Status builds a snapshot of the machine.
func (m *Machine) Status() Status {
	s := Status{
		State:      m.state,
		SSID:       m.creds.SSID,
		Retries:    m.retry.Count(),
		MaxRetries: m.retry.Max(),
		Session:    m.session,
		Source:     m.source,
		Reason:     m.reason,
		Portal:     m.httpStarted,
		UpdatedAt:  time.Now(),
	}
	if m.ip.IsValid() {
		s.IP = m.ip.String()
	}
	if m.handled > 0 {
		s.LastEvent = m.lastEvent.String()
	}
	return s
}

func (m *Machine) publish() {
	status := m.Status()
	for _, o := range m.observers {
		o.OnStatus(status)
	}
}

func (m *Machine) setState(next State) {
	prev := m.state
	m.state = next
	if prev == StateDisconnecting && next != StateDisconnecting {
		m.stopDisconnectTimer()
	}
	logging.LogTransition(prev.String(), next.String(), m.lastEvent.String(), m.session, m.retry.Count())
}

// startHTTPServer starts the portal once.
func (m *Machine) startHTTPServer(ctx context.Context, _ StartHTTPServer) {
	if m.httpStarted {
		logging.Debug("HTTP server already started, ignoring request")
		return
	}
	if m.http == nil {
		logging.Warn("No HTTP server configured")
		return
	}
	if err := m.http.Start(ctx); err != nil {
		logging.Error("Failed to start HTTP server", zap.Error(err))
		return
	}
	m.httpStarted = true
}

func (m *Machine) connectingFromHTTPServer(ctx context.Context, msg ConnectingFromHTTPServer) {
	if errs := credentials.ValidateErrors(msg.Credentials); len(errs) > 0 {
		logging.Warn("Rejected portal credentials",
			zap.String("ssid", msg.Credentials.SSID),
			zap.String("errors", credentials.FormatValidationErrors(errs)),
		)
		m.notifyFailed(ReasonInvalidCredentials)
		return
	}
	m.startSession(msg.Credentials, SourcePortal)
}

func (m *Machine) loadSavedCredentials(ctx context.Context, _ LoadSavedCredentials) {
	prev := m.state
	m.setState(StateAwaitingCredentials)

	creds, ok := m.readStore(ctx)
	if !ok {
		logging.Info("No saved credentials, waiting for portal configuration")
		m.setState(prev)
		return
	}
	m.startSession(creds, SourceSaved)
}

func (m *Machine) readStore(ctx context.Context) (credentials.Credentials, bool) {
	if m.store == nil {
		return credentials.Credentials{}, false
	}
	creds, ok, err := m.store.Load(ctx)
	if err != nil {
		logging.Warn("Failed to read saved credentials", zap.Error(err))
		return credentials.Credentials{}, false
	}
	if !ok {
		return credentials.Credentials{}, false
	}
	if err := credentials.Validate(creds); err != nil {
		logging.Warn("Ignoring invalid saved credentials", zap.Error(err))
		return credentials.Credentials{}, false
	}
	return creds, true
}

func (m *Machine) stationConnectedGotIP(ctx context.Context, msg StationConnectedGotIP) {
	if m.stale(msg.Kind(), msg.Session) {
		return
	}

	m.retry.RecordSuccess()

	switch m.state {
	case StateConnected:
		// Duplicate notification: only the counter reset applies.
		if msg.IP.IsValid() {
			m.ip = msg.IP
		}
		logging.Debug("Duplicate got-IP notification", zap.String("ip", msg.IP.String()))

	case StateConnecting, StateIdle, StateAwaitingCredentials:
		if m.state != StateConnecting {
			logging.LogAnomaly(msg.Kind().String(), m.state.String(), zap.Uint64("session", msg.Session))
		}
		m.ip = msg.IP
		m.reason = ""
		m.setState(StateConnected)
		logging.Info("Station connected",
			zap.String("ssid", m.creds.SSID),
			zap.String("ip", msg.IP.String()),
			zap.Uint64("session", m.session),
		)
		m.persist(ctx)
		if m.http != nil {
			m.http.NotifyConnected(m.Status())
		}

	case StateDisconnecting:
		logging.LogAnomaly(msg.Kind().String(), m.state.String(), zap.Uint64("session", msg.Session))
	}
}

// persist saves portal credentials after they produced a working link.
func (m *Machine) persist(ctx context.Context) {
	if m.source != SourcePortal || m.store == nil {
		return
	}
	if err := m.store.Save(ctx, m.creds); err != nil {
		logging.Error("Failed to save credentials", zap.String("ssid", m.creds.SSID), zap.Error(err))
		return
	}
	m.source = SourceSaved
	logging.Info("Credentials saved", zap.String("ssid", m.creds.SSID))
}

func (m *Machine) stationDisconnected(ctx context.Context, msg StationDisconnected) {
	if m.stale(msg.Kind(), msg.Session) {
		return
	}

	switch m.state {
	case StateDisconnecting:
		m.ip = netip.Addr{}
		m.setState(StateIdle)
		if msg.Reason == ReasonDisconnectTimeout {
			logging.Warn("Link-down not reported in time, assuming disconnected",
				zap.Duration("timeout", m.disconnectTimeout))
			return
		}
		logging.Info("Station disconnected by user request")

	case StateIdle, StateAwaitingCredentials:
		if msg.Reason == ReasonDisconnectTimeout {
			logging.Debug("Disconnect timeout after disconnect completed")
			return
		}
		logging.LogAnomaly(msg.Kind().String(), m.state.String(),
			zap.Uint64("session", msg.Session),
			zap.String("reason", msg.Reason),
		)

	case StateConnecting, StateConnected:
		m.ip = netip.Addr{}
		m.reason = msg.Reason
		if m.retry.RecordFailure() {
			logging.Info("Station disconnected, retrying",
				zap.String("ssid", m.creds.SSID),
				zap.String("reason", msg.Reason),
				zap.Int("attempt", m.retry.Count()),
				zap.Int("max_retries", m.retry.Max()),
			)
			m.setState(StateConnecting)
			m.connect()
			return
		}
		logging.Warn("Retries exhausted, giving up",
			zap.String("ssid", m.creds.SSID),
			zap.String("reason", msg.Reason),
			zap.Int("retries", m.retry.Count()),
		)
		m.setState(StateIdle)
		m.notifyFailed(ReasonRetriesExhausted)
	}
}

func (m *Machine) userRequestedStationDisconnect(ctx context.Context, _ UserRequestedStationDisconnect) {
	hadLink := m.state.linkActive()

	m.retry.Reset()
	if err := m.station.Disconnect(); err != nil {
		logging.Warn("Disconnect command failed", zap.Error(err))
	}
	if m.forget && m.store != nil {
		if err := m.store.Clear(ctx); err != nil {
			logging.Warn("Failed to clear saved credentials", zap.Error(err))
		}
	}

	m.creds = credentials.Credentials{}
	m.source = SourceNone
	m.ip = netip.Addr{}
	m.reason = ReasonUserDisconnect

	if hadLink {
		m.setState(StateDisconnecting)
		m.armDisconnectTimer()
	} else {
		m.setState(StateIdle)
	}
}

// startSession begins a new connect session with creds, dropping any link
// that is up or in flight first.
func (m *Machine) startSession(creds credentials.Credentials, source Source) {
	if m.state.linkActive() {
		if err := m.station.Disconnect(); err != nil {
			logging.Warn("Disconnect before new session failed", zap.Error(err))
		}
	}

	m.session++
	m.retry.Reset()
	m.creds = creds
	m.source = source
	m.ip = netip.Addr{}
	m.reason = ""
	m.metrics.SessionStarted()

	logging.Info("Starting connect session",
		zap.Uint64("session", m.session),
		zap.String("ssid", creds.SSID),
		zap.String("source", source.String()),
	)

	m.setState(StateConnecting)
	if err := m.station.Configure(creds); err != nil {
		logging.Warn("Station configuration failed", zap.Error(err))
		m.followUp(StationDisconnected{Session: m.session, Reason: ReasonConnectError})
		return
	}
	m.connect()
}

// connect issues the connect command for the current session. A rejected
// command is fed back as a StationDisconnected so it goes through the retry
// policy like any failed attempt.
func (m *Machine) connect() {
	m.metrics.ConnectAttempt()
	if err := m.station.Connect(m.session); err != nil {
		logging.Warn("Connect command failed", zap.Uint64("session", m.session), zap.Error(err))
		m.followUp(StationDisconnected{Session: m.session, Reason: ReasonConnectError})
	}
}

// armDisconnectTimer queues a synthetic link-down for the current session
// in case the driver's own event is lost.
func (m *Machine) armDisconnectTimer() {
	m.stopDisconnectTimer()
	if m.sender == nil || m.disconnectTimeout < 0 {
		return
	}
	sender := m.sender
	msg := StationDisconnected{Session: m.session, Reason: ReasonDisconnectTimeout}
	m.disconnectTimer = time.AfterFunc(m.disconnectTimeout, func() {
		if err := sender.Send(msg); err != nil {
			logging.Warn("Disconnect timeout not queued", zap.Error(err))
		}
	})
}

func (m *Machine) stopDisconnectTimer() {
	if m.disconnectTimer != nil {
		m.disconnectTimer.Stop()
		m.disconnectTimer = nil
	}
}

func (m *Machine) followUp(msg Message) {
	if m.sender != nil {
		if err := m.sender.Send(msg); err == nil {
			return
		}
	}
	m.backlog = append(m.backlog, msg)
}

// stale reports whether a link event belongs to a superseded session.
func (m *Machine) stale(kind MessageKind, session uint64) bool {
	if session == 0 || session == m.session {
		return false
	}
	logging.Warn("Dropping link event from superseded session",
		zap.String("kind", kind.String()),
		zap.Uint64("event_session", session),
		zap.Uint64("session", m.session),
	)
	m.metrics.StaleEvent(kind.String())
	return true
}

func (m *Machine) notifyFailed(reason string) {
	m.reason = reason
	if m.http != nil {
		m.http.NotifyFailed(m.Status(), reason)
	}
}

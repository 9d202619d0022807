package wifiapp

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/muurk/wifiapp/internal/credentials"
	"github.com/muurk/wifiapp/internal/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeStation struct {
	configured  []credentials.Credentials
	connects    []uint64
	disconnects int
	connectErr  error
}

func (s *fakeStation) Name() string { return "sta0" }
func (s *fakeStation) Close() error { return nil }

func (s *fakeStation) Disconnect() error {
	s.disconnects++
	return nil
}

func (s *fakeStation) Configure(c credentials.Credentials) error {
	s.configured = append(s.configured, c)
	return nil
}

func (s *fakeStation) Connect(session uint64) error {
	s.connects = append(s.connects, session)
	return s.connectErr
}

type fakeHTTP struct {
	starts    int
	startErr  error
	connected []Status
	failed    []string
}

func (h *fakeHTTP) Start(context.Context) error {
	h.starts++
	return h.startErr
}

func (h *fakeHTTP) NotifyConnected(s Status)          { h.connected = append(h.connected, s) }
func (h *fakeHTTP) NotifyFailed(_ Status, why string) { h.failed = append(h.failed, why) }

type statusRecorder struct{ statuses []Status }

func (r *statusRecorder) OnStatus(s Status) { r.statuses = append(r.statuses, s) }

type brokenStore struct{}

func (brokenStore) Load(context.Context) (credentials.Credentials, bool, error) {
	return credentials.Credentials{}, false, errors.New("flash read error")
}
func (brokenStore) Save(context.Context, credentials.Credentials) error { return nil }
func (brokenStore) Clear(context.Context) error                         { return nil }

type harness struct {
	m     *Machine
	sta   *fakeStation
	http  *fakeHTTP
	store *credentials.MemoryStore
	rec   *statusRecorder
}

func newHarness(t *testing.T, maxRetries int, saved *credentials.Credentials) *harness {
	t.Helper()
	h := &harness{
		sta:   &fakeStation{},
		http:  &fakeHTTP{},
		store: credentials.NewMemoryStore(saved),
		rec:   &statusRecorder{},
	}
	h.m = NewMachine(MachineOptions{
		Station:            h.sta,
		MaxRetries:         maxRetries,
		ForgetOnDisconnect: true,
		Store:              h.store,
		HTTP:               h.http,
		Observers:          []StatusObserver{h.rec},
	})
	return h
}

// observeLogs routes package logging to an in-memory core for one test.
func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logging.GetLogger()
	logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(prev) })
	return logs
}

const (
	anomalyMsg = "Unexpected event for state"
	staleMsg   = "Dropping link event from superseded session"
)

func (h *harness) send(msgs ...Message) {
	for _, msg := range msgs {
		h.m.Handle(context.Background(), msg)
	}
}

var homeNet = credentials.Credentials{SSID: "HomeNet1", Password: "secret12"}

func portal(c credentials.Credentials) Message { return ConnectingFromHTTPServer{Credentials: c} }

func gotIP(session uint64) Message {
	return StationConnectedGotIP{Session: session, IP: netip.MustParseAddr("192.168.1.50")}
}

func lost(session uint64) Message {
	return StationDisconnected{Session: session, Reason: "auth_fail"}
}

func TestLoadSavedCredentialsNoneSaved(t *testing.T) {
	h := newHarness(t, DefaultMaxRetries, nil)

	h.send(LoadSavedCredentials{})

	if len(h.sta.configured) != 0 || len(h.sta.connects) != 0 {
		t.Errorf("configure/connect issued with empty store: %v / %v", h.sta.configured, h.sta.connects)
	}
	if h.m.State() != StateIdle {
		t.Errorf("State() = %v, want Idle", h.m.State())
	}
}

func TestLoadSavedCredentialsStoreError(t *testing.T) {
	sta := &fakeStation{}
	m := NewMachine(MachineOptions{Station: sta, MaxRetries: 5, Store: brokenStore{}})

	m.Handle(context.Background(), LoadSavedCredentials{})

	if m.State() != StateIdle || len(sta.connects) != 0 {
		t.Errorf("store error should be treated as none saved, state %v connects %v", m.State(), sta.connects)
	}
}

func TestLoadSavedCredentialsConnects(t *testing.T) {
	h := newHarness(t, DefaultMaxRetries, &homeNet)

	h.send(LoadSavedCredentials{})

	if h.m.State() != StateConnecting {
		t.Fatalf("State() = %v, want Connecting", h.m.State())
	}
	if len(h.sta.configured) != 1 || h.sta.configured[0] != homeNet {
		t.Errorf("configured = %v, want %v", h.sta.configured, homeNet)
	}

	h.send(gotIP(h.m.Session()))
	if h.m.State() != StateConnected {
		t.Fatalf("State() = %v, want Connected", h.m.State())
	}
	if h.store.Saves() != 0 {
		t.Error("credentials loaded from the store should not be saved again")
	}
}

func TestPortalCredentialsStartSession(t *testing.T) {
	h := newHarness(t, DefaultMaxRetries, nil)

	h.send(portal(homeNet))

	if len(h.sta.configured) != 1 || h.sta.configured[0] != homeNet {
		t.Errorf("configured = %v, want %v", h.sta.configured, homeNet)
	}
	if len(h.sta.connects) != 1 || h.sta.connects[0] != 1 {
		t.Errorf("connects = %v, want [1]", h.sta.connects)
	}
	if h.m.Retries() != 0 {
		t.Errorf("Retries() = %d, want 0", h.m.Retries())
	}
	if h.m.State() != StateConnecting {
		t.Errorf("State() = %v, want Connecting", h.m.State())
	}
}

func TestRetriesThenSuccess(t *testing.T) {
	h := newHarness(t, DefaultMaxRetries, nil)
	h.send(portal(homeNet))

	for want := 1; want <= 4; want++ {
		h.send(lost(1))
		if h.m.Retries() != want {
			t.Fatalf("after failure %d Retries() = %d", want, h.m.Retries())
		}
		if h.m.State() != StateConnecting {
			t.Fatalf("after failure %d State() = %v, want Connecting", want, h.m.State())
		}
	}
	if len(h.sta.connects) != 5 {
		t.Errorf("connect commands = %d, want 5 (initial + 4 retries)", len(h.sta.connects))
	}

	h.send(gotIP(1))

	if h.m.Retries() != 0 {
		t.Errorf("Retries() = %d after got-IP, want 0", h.m.Retries())
	}
	if h.m.State() != StateConnected {
		t.Errorf("State() = %v, want Connected", h.m.State())
	}
	if len(h.http.connected) != 1 {
		t.Errorf("NotifyConnected calls = %d, want 1", len(h.http.connected))
	}
	if h.store.Saves() != 1 {
		t.Errorf("portal credentials saved %d times, want 1", h.store.Saves())
	}
	if got := h.http.connected[0].IP; got != "192.168.1.50" {
		t.Errorf("notified IP = %q", got)
	}
}

func TestRetriesExhausted(t *testing.T) {
	h := newHarness(t, 5, nil)
	h.send(portal(homeNet))
	for i := 0; i < 5; i++ {
		h.send(lost(1))
	}
	if h.m.Retries() != 5 || h.m.State() != StateConnecting {
		t.Fatalf("setup: Retries() = %d State() = %v", h.m.Retries(), h.m.State())
	}
	connects := len(h.sta.connects)

	h.send(lost(1))

	if h.m.State() != StateIdle {
		t.Errorf("State() = %v, want Idle", h.m.State())
	}
	if len(h.sta.connects) != connects {
		t.Errorf("connect issued after exhaustion: %d -> %d", connects, len(h.sta.connects))
	}
	if len(h.http.failed) != 1 || h.http.failed[0] != ReasonRetriesExhausted {
		t.Errorf("NotifyFailed = %v, want [%s]", h.http.failed, ReasonRetriesExhausted)
	}
	if !h.m.Status().Exhausted() {
		t.Error("Status().Exhausted() should be true")
	}
}

func TestRetryCounterNeverExceedsBound(t *testing.T) {
	for _, max := range []int{0, 1, 3, 5} {
		h := newHarness(t, max, nil)
		h.send(portal(homeNet))

		for i := 0; i < max+3; i++ {
			h.send(lost(1))
			if h.m.Retries() > max {
				t.Fatalf("max %d: Retries() = %d exceeds bound", max, h.m.Retries())
			}
			if i == max && h.m.State() != StateIdle {
				t.Fatalf("max %d: failure %d should end in Idle, got %v", max, i+1, h.m.State())
			}
		}
		if len(h.sta.connects) != max+1 {
			t.Errorf("max %d: connects = %d, want %d", max, len(h.sta.connects), max+1)
		}
		if len(h.http.failed) != 1 {
			t.Errorf("max %d: NotifyFailed calls = %d, want 1", max, len(h.http.failed))
		}
	}
}

func TestGotIPAlwaysResets(t *testing.T) {
	h := newHarness(t, 5, nil)
	h.send(portal(homeNet), lost(1), lost(1), lost(1), gotIP(1))
	if h.m.Retries() != 0 {
		t.Fatalf("Retries() = %d, want 0", h.m.Retries())
	}

	// Duplicate notification while connected is idempotent.
	h.send(gotIP(1))
	if h.m.Retries() != 0 || h.m.State() != StateConnected {
		t.Errorf("duplicate got-IP: Retries() = %d State() = %v", h.m.Retries(), h.m.State())
	}
	if len(h.http.connected) != 1 {
		t.Errorf("NotifyConnected calls = %d, want 1", len(h.http.connected))
	}

	// A dropped link retries, and the next got-IP resets again.
	h.send(lost(1), lost(1))
	h.send(gotIP(1))
	if h.m.Retries() != 0 || h.m.State() != StateConnected {
		t.Errorf("after reconnect: Retries() = %d State() = %v", h.m.Retries(), h.m.State())
	}
}

func TestUserDisconnectAfterExhaustion(t *testing.T) {
	h := newHarness(t, 2, nil)
	h.send(portal(homeNet), lost(1), lost(1), lost(1))
	if h.m.State() != StateIdle || h.m.Retries() != 2 {
		t.Fatalf("setup: State() = %v Retries() = %d", h.m.State(), h.m.Retries())
	}

	h.send(UserRequestedStationDisconnect{})

	if h.sta.disconnects != 1 {
		t.Errorf("disconnect commands = %d, want 1", h.sta.disconnects)
	}
	if h.m.Retries() != 0 {
		t.Errorf("Retries() = %d, want 0", h.m.Retries())
	}
	if h.m.State() != StateIdle {
		t.Errorf("State() = %v, want Idle", h.m.State())
	}
}

func TestUserDisconnectWhileConnected(t *testing.T) {
	h := newHarness(t, 5, nil)
	h.send(portal(homeNet), gotIP(1))
	if h.store.Saves() != 1 {
		t.Fatal("setup: credentials should be saved")
	}
	connects := len(h.sta.connects)

	h.send(UserRequestedStationDisconnect{})
	if h.m.State() != StateDisconnecting {
		t.Fatalf("State() = %v, want Disconnecting", h.m.State())
	}
	if _, ok, _ := h.store.Load(context.Background()); ok {
		t.Error("saved credentials should be cleared")
	}

	// A late got-IP does not bring the link back.
	h.send(gotIP(1))
	if h.m.State() != StateDisconnecting {
		t.Errorf("State() = %v, want Disconnecting", h.m.State())
	}

	h.send(StationDisconnected{Session: 1, Reason: "assoc_leave"})
	if h.m.State() != StateIdle {
		t.Errorf("State() = %v, want Idle", h.m.State())
	}
	if h.m.Retries() != 0 || len(h.sta.connects) != connects {
		t.Error("completing a user disconnect must not touch the retry policy")
	}
}

func TestUserDisconnectCompletesWithoutLinkEvent(t *testing.T) {
	ch := NewChannel(4)
	sta := &fakeStation{}
	m := NewMachine(MachineOptions{
		Station:           sta,
		MaxRetries:        5,
		Sender:            ch,
		DisconnectTimeout: 10 * time.Millisecond,
	})
	ctx := context.Background()
	m.Handle(ctx, portal(homeNet))
	m.Handle(ctx, gotIP(1))

	// The driver's link-down event is never delivered.
	m.Handle(ctx, UserRequestedStationDisconnect{})
	if m.State() != StateDisconnecting {
		t.Fatalf("State() = %v, want Disconnecting", m.State())
	}

	recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := ch.Receive(recvCtx)
	if err != nil {
		t.Fatalf("no fallback queued: %v", err)
	}
	sd, ok := msg.(StationDisconnected)
	if !ok || sd.Session != 1 || sd.Reason != ReasonDisconnectTimeout {
		t.Fatalf("fallback = %#v", msg)
	}

	m.Handle(ctx, msg)
	if m.State() != StateIdle || m.Retries() != 0 || len(sta.connects) != 1 {
		t.Errorf("after fallback: State() = %v Retries() = %d connects = %d", m.State(), m.Retries(), len(sta.connects))
	}
}

func TestDisconnectTimeoutCancelledByLinkEvent(t *testing.T) {
	ch := NewChannel(4)
	m := NewMachine(MachineOptions{
		Station:           &fakeStation{},
		MaxRetries:        5,
		Sender:            ch,
		DisconnectTimeout: 20 * time.Millisecond,
	})
	ctx := context.Background()
	m.Handle(ctx, portal(homeNet))
	m.Handle(ctx, gotIP(1))
	m.Handle(ctx, UserRequestedStationDisconnect{})
	m.Handle(ctx, StationDisconnected{Session: 1, Reason: "assoc_leave"})
	if m.State() != StateIdle {
		t.Fatalf("State() = %v, want Idle", m.State())
	}

	time.Sleep(60 * time.Millisecond)
	if ch.Len() != 0 {
		t.Errorf("fallback queued after the link event arrived, Len() = %d", ch.Len())
	}

	// A late fallback is not an anomaly.
	logs := observeLogs(t)
	m.Handle(ctx, StationDisconnected{Session: 1, Reason: ReasonDisconnectTimeout})
	if m.State() != StateIdle || logs.FilterMessage(anomalyMsg).Len() != 0 {
		t.Errorf("late fallback: State() = %v anomalies = %d", m.State(), logs.FilterMessage(anomalyMsg).Len())
	}
}

func TestInvalidCredentialsRejected(t *testing.T) {
	tests := []struct {
		name  string
		creds credentials.Credentials
	}{
		{"ssid too long", credentials.Credentials{SSID: strings.Repeat("s", 33), Password: "secret12"}},
		{"password too long", credentials.Credentials{SSID: "HomeNet1", Password: strings.Repeat("p", 65)}},
		{"empty ssid", credentials.Credentials{Password: "secret12"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 5, nil)
			h.send(portal(homeNet), lost(1), lost(1))
			configured, connects := len(h.sta.configured), len(h.sta.connects)

			h.send(portal(tt.creds))

			if len(h.sta.configured) != configured || len(h.sta.connects) != connects {
				t.Error("invalid credentials reached the station")
			}
			if h.m.Retries() != 2 {
				t.Errorf("Retries() = %d, want 2 (unchanged)", h.m.Retries())
			}
			if h.m.State() != StateConnecting || h.m.Session() != 1 {
				t.Errorf("State() = %v Session() = %d, want Connecting/1", h.m.State(), h.m.Session())
			}
			if len(h.http.failed) != 1 || h.http.failed[0] != ReasonInvalidCredentials {
				t.Errorf("NotifyFailed = %v", h.http.failed)
			}
		})
	}
}

func TestBoundaryLengthsAccepted(t *testing.T) {
	h := newHarness(t, 5, nil)
	h.send(portal(credentials.Credentials{SSID: strings.Repeat("s", 32), Password: strings.Repeat("p", 64)}))
	if h.m.State() != StateConnecting || len(h.sta.connects) != 1 {
		t.Errorf("32/64 byte credentials should be accepted, state %v", h.m.State())
	}
}

func TestStaleEventsDropped(t *testing.T) {
	h := newHarness(t, 5, nil)
	h.send(portal(homeNet), lost(1))

	other := credentials.Credentials{SSID: "Office", Password: "hunter22"}
	h.send(portal(other))
	if h.m.Session() != 2 || h.m.Retries() != 0 {
		t.Fatalf("Session() = %d Retries() = %d, want 2/0", h.m.Session(), h.m.Retries())
	}
	if h.sta.disconnects != 1 {
		t.Errorf("in-flight attempt should be dropped before the new session, disconnects = %d", h.sta.disconnects)
	}

	logs := observeLogs(t)
	h.send(lost(1), gotIP(1))
	if h.m.Retries() != 0 || h.m.State() != StateConnecting {
		t.Errorf("stale events changed state: Retries() = %d State() = %v", h.m.Retries(), h.m.State())
	}
	if n := logs.FilterMessage(staleMsg).Len(); n != 2 {
		t.Errorf("stale drop entries = %d, want 2", n)
	}
	if n := logs.FilterMessage(anomalyMsg).Len(); n != 0 {
		t.Errorf("stale events should not be logged as anomalies, got %d", n)
	}

	// Untagged events are applied to the current session.
	h.send(StationDisconnected{Reason: "beacon_timeout"})
	if h.m.Retries() != 1 {
		t.Errorf("untagged disconnect should count, Retries() = %d", h.m.Retries())
	}
}

func TestDisconnectWhileIdleIgnored(t *testing.T) {
	h := newHarness(t, 5, nil)
	logs := observeLogs(t)
	h.send(lost(0))
	if h.m.State() != StateIdle || h.m.Retries() != 0 || len(h.sta.connects) != 0 {
		t.Errorf("stray disconnect changed state: %+v", h.m.Status())
	}

	anomalies := logs.FilterMessage(anomalyMsg).All()
	if len(anomalies) != 1 {
		t.Fatalf("anomaly entries = %d, want 1", len(anomalies))
	}
	fields := anomalies[0].ContextMap()
	if fields["kind"] != "StationDisconnected" || fields["state"] != StateIdle.String() {
		t.Errorf("anomaly fields = %v", fields)
	}
	if anomalies[0].Level != zapcore.WarnLevel {
		t.Errorf("anomaly level = %s, want warn", anomalies[0].Level)
	}
	if n := logs.FilterMessage(staleMsg).Len(); n != 0 {
		t.Errorf("current-session event logged as stale %d times", n)
	}
}

func TestStartHTTPServerOnce(t *testing.T) {
	h := newHarness(t, 5, nil)
	h.http.startErr = errors.New("address in use")

	h.send(StartHTTPServer{})
	if h.m.Status().Portal {
		t.Fatal("portal should not be marked started after a failure")
	}

	h.http.startErr = nil
	h.send(StartHTTPServer{}, StartHTTPServer{})
	if h.http.starts != 2 {
		t.Errorf("Start calls = %d, want 2 (one failure, one success)", h.http.starts)
	}
	if !h.m.Status().Portal || h.m.State() != StateIdle {
		t.Errorf("status = %+v", h.m.Status())
	}
}

func TestConnectErrorCountsAsFailure(t *testing.T) {
	h := newHarness(t, 2, nil)
	h.sta.connectErr = errors.New("radio busy")

	h.send(portal(homeNet))

	if len(h.sta.connects) != 3 {
		t.Errorf("connect commands = %d, want 3", len(h.sta.connects))
	}
	if h.m.State() != StateIdle {
		t.Errorf("State() = %v, want Idle", h.m.State())
	}
	if len(h.http.failed) != 1 || h.http.failed[0] != ReasonRetriesExhausted {
		t.Errorf("NotifyFailed = %v", h.http.failed)
	}
}

func TestConnectErrorQueuedOnSender(t *testing.T) {
	ch := NewChannel(4)
	sta := &fakeStation{connectErr: errors.New("radio busy")}
	m := NewMachine(MachineOptions{Station: sta, MaxRetries: 5, Sender: ch})

	m.Handle(context.Background(), portal(homeNet))

	if ch.Len() != 1 {
		t.Fatalf("queued follow-ups = %d, want 1", ch.Len())
	}
	msg, _ := ch.Receive(context.Background())
	sd, ok := msg.(StationDisconnected)
	if !ok || sd.Session != 1 || sd.Reason != ReasonConnectError {
		t.Errorf("follow-up = %#v", msg)
	}
}

func TestStatusPublished(t *testing.T) {
	h := newHarness(t, 5, nil)
	h.send(portal(homeNet), gotIP(1))

	if len(h.rec.statuses) != 2 {
		t.Fatalf("published %d statuses, want 2", len(h.rec.statuses))
	}
	last := h.rec.statuses[1]
	if last.State != StateConnected || last.SSID != "HomeNet1" || last.IP != "192.168.1.50" {
		t.Errorf("status = %+v", last)
	}
	if last.Source != SourceSaved || last.LastEvent != "StationConnectedGotIP" {
		t.Errorf("status source/event = %v/%q", last.Source, last.LastEvent)
	}
}

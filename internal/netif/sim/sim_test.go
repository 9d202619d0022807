package sim

import (
	"net/netip"
	"testing"
	"time"

	"github.com/muurk/wifiapp/internal/credentials"
	"github.com/muurk/wifiapp/internal/netif"
)

func newTestStation(t *testing.T, networks map[string]string) (*Station, <-chan netif.LinkEvent) {
	t.Helper()
	events := make(chan netif.LinkEvent, 8)
	driver := New(Config{Networks: networks, Latency: time.Millisecond})
	sta, err := driver.NewStation(netif.StationConfig{}, func(ev netif.LinkEvent) { events <- ev })
	if err != nil {
		t.Fatalf("NewStation() error = %v", err)
	}
	t.Cleanup(func() { _ = sta.Close() })
	return sta.(*Station), events
}

func waitEvent(t *testing.T, events <-chan netif.LinkEvent) netif.LinkEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for link event")
		return netif.LinkEvent{}
	}
}

func TestConnectOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		creds      credentials.Credentials
		wantKind   netif.LinkEventKind
		wantReason string
	}{
		{"known network", credentials.Credentials{SSID: "HomeNet1", Password: "secret12"}, netif.LinkGotIP, ""},
		{"wrong password", credentials.Credentials{SSID: "HomeNet1", Password: "nope"}, netif.LinkDisconnected, ReasonAuthFail},
		{"unknown network", credentials.Credentials{SSID: "Elsewhere"}, netif.LinkDisconnected, ReasonNoAPFound},
		{"open network", credentials.Credentials{SSID: "Cafe"}, netif.LinkGotIP, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sta, events := newTestStation(t, map[string]string{"HomeNet1": "secret12", "Cafe": ""})

			if err := sta.Configure(tt.creds); err != nil {
				t.Fatal(err)
			}
			if err := sta.Connect(7); err != nil {
				t.Fatalf("Connect() error = %v", err)
			}

			ev := waitEvent(t, events)
			if ev.Kind != tt.wantKind || ev.Reason != tt.wantReason {
				t.Errorf("event = %v/%q, want %v/%q", ev.Kind, ev.Reason, tt.wantKind, tt.wantReason)
			}
			if ev.Session != 7 {
				t.Errorf("Session = %d, want 7", ev.Session)
			}
			if tt.wantKind == netif.LinkGotIP {
				if !netip.MustParsePrefix(DefaultAddressNet).Contains(ev.IP) {
					t.Errorf("lease %s outside %s", ev.IP, DefaultAddressNet)
				}
				if !sta.Connected() {
					t.Error("Connected() should be true after GotIP")
				}
			}
		})
	}
}

func TestConnectRequiresConfigure(t *testing.T) {
	sta, _ := newTestStation(t, nil)
	if err := sta.Connect(1); err != ErrNotConfigured {
		t.Errorf("Connect() error = %v, want ErrNotConfigured", err)
	}
}

func TestDisconnectReportsLinkLoss(t *testing.T) {
	sta, events := newTestStation(t, map[string]string{"HomeNet1": "secret12"})
	_ = sta.Configure(credentials.Credentials{SSID: "HomeNet1", Password: "secret12"})
	_ = sta.Connect(3)
	waitEvent(t, events)

	if err := sta.Disconnect(); err != nil {
		t.Fatal(err)
	}
	ev := waitEvent(t, events)
	if ev.Kind != netif.LinkDisconnected || ev.Reason != ReasonAssocLeave || ev.Session != 3 {
		t.Errorf("event = %+v, want assoc_leave for session 3", ev)
	}

	// Nothing left to disconnect: no further event.
	if err := sta.Disconnect(); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-events:
		t.Errorf("unexpected event %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestDropWhileConnected(t *testing.T) {
	sta, events := newTestStation(t, map[string]string{"HomeNet1": "secret12"})
	_ = sta.Configure(credentials.Credentials{SSID: "HomeNet1", Password: "secret12"})
	_ = sta.Connect(9)
	waitEvent(t, events)

	sta.Drop()
	ev := waitEvent(t, events)
	if ev.Reason != ReasonBeaconLoss || ev.Session != 9 {
		t.Errorf("event = %+v, want beacon loss for session 9", ev)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	sta, _ := newTestStation(t, nil)
	if err := sta.Close(); err != nil {
		t.Fatal(err)
	}
	if err := sta.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if err := sta.Configure(credentials.Credentials{SSID: "x"}); err != ErrClosed {
		t.Errorf("Configure() after Close() = %v, want ErrClosed", err)
	}
}

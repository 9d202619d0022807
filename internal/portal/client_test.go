package portal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muurk/wifiapp/internal/credentials"
	"github.com/muurk/wifiapp/internal/wifiapp"
)

func fastClient(url string) *Client {
	c := NewClient(url)
	c.SetRetry(3, time.Millisecond)
	return c
}

func TestClientRetriesBusy(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeError(w, http.StatusServiceUnavailable, "manager busy, try again", nil)
			return
		}
		writeJSON(w, http.StatusAccepted, AcceptedResponse{Accepted: true, Message: "disconnect queued"})
	}))
	defer ts.Close()

	resp, err := fastClient(ts.URL).Disconnect(context.Background())
	if err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if !resp.Accepted || calls.Load() != 3 {
		t.Errorf("resp = %+v after %d calls, want accepted after 3", resp, calls.Load())
	}
}

func TestClientGivesUp(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeError(w, http.StatusTooManyRequests, "too many connect requests", nil)
	}))
	defer ts.Close()

	_, err := fastClient(ts.URL).Reconnect(context.Background())
	if !IsBusy(err) {
		t.Fatalf("error = %v, want busy", err)
	}
	if calls.Load() != 4 {
		t.Errorf("calls = %d, want 1 + 3 retries", calls.Load())
	}
}

func TestClientRejectedNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req ConnectRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.SSID != "HomeNet1" {
			t.Errorf("server saw ssid %q", req.SSID)
		}
		writeError(w, http.StatusBadRequest, "invalid credentials", []string{"nope"})
	}))
	defer ts.Close()

	_, err := fastClient(ts.URL).Connect(context.Background(), credentials.Credentials{SSID: "HomeNet1", Password: "secret12"})
	if !IsRejected(err) {
		t.Fatalf("error = %v, want rejected", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest || len(apiErr.Details) != 1 {
		t.Errorf("APIError = %+v", apiErr)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClientValidatesLocally(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	_, err := c.Connect(context.Background(), credentials.Credentials{})
	if !IsRejected(err) {
		t.Errorf("error = %v, want rejected without a request", err)
	}
}

func TestClientStatus(t *testing.T) {
	s := newTestServer(t, Config{}, &recordingSender{})
	s.OnStatus(wifiapp.Status{State: wifiapp.StateConnected, SSID: "HomeNet1", Source: wifiapp.SourceSaved})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	got, err := fastClient(ts.URL).Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got.State != wifiapp.StateConnected || got.Source != wifiapp.SourceSaved {
		t.Errorf("status = %+v", got)
	}
}

func TestClientAgainstPortal(t *testing.T) {
	sender := &recordingSender{}
	s := newTestServer(t, Config{}, sender)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	c := fastClient(ts.URL)
	if _, err := c.Connect(context.Background(), credentials.Credentials{SSID: "HomeNet1", Password: "secret12"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Reconnect(context.Background()); err != nil {
		t.Fatal(err)
	}
	msgs := sender.sent()
	if len(msgs) != 2 || msgs[0].Kind() != wifiapp.KindConnectingFromHTTPServer || msgs[1].Kind() != wifiapp.KindLoadSavedCredentials {
		t.Errorf("queued = %v", msgs)
	}
}

func TestClientNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := fastClient(url)
	c.SetRetry(1, time.Millisecond)
	_, err := c.Status(context.Background())
	if !IsNetworkError(err) || !IsRetryable(err) {
		t.Errorf("error = %v, want retryable network error", err)
	}
	if GetTroubleshootingHint(err) == "" {
		t.Error("network errors should carry a hint")
	}
}

func TestClientContextCancelStopsRetrying(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusServiceUnavailable, "busy", nil)
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	c.SetRetry(10, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.Disconnect(ctx)
	if !IsBusy(err) {
		t.Errorf("error = %v, want last busy error", err)
	}
	if time.Since(start) > time.Second {
		t.Error("retry loop ignored context cancellation")
	}
}

func TestWatchURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://192.168.0.1", "ws://192.168.0.1/ws"},
		{"192.168.0.1:8080", "ws://192.168.0.1:8080/ws"},
		{"https://portal.local/", "wss://portal.local/ws"},
	}
	for _, tt := range tests {
		got, err := NewClient(tt.base).WatchURL()
		if err != nil || got != tt.want {
			t.Errorf("WatchURL(%q) = %q, %v; want %q", tt.base, got, err, tt.want)
		}
	}
}

func TestSubscribe(t *testing.T) {
	s := newTestServer(t, Config{}, &recordingSender{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	sub, err := NewClient(ts.URL).Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer func() { _ = sub.Close() }()

	ev, err := sub.Next()
	if err != nil || ev.Type != EventStatus {
		t.Fatalf("Next() = %+v, %v", ev, err)
	}

	s.NotifyFailed(wifiapp.Status{}, wifiapp.ReasonInvalidCredentials)
	ev, err = sub.Next()
	if err != nil || ev.Reason != wifiapp.ReasonInvalidCredentials {
		t.Errorf("Next() = %+v, %v", ev, err)
	}
}

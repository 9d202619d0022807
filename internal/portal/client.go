package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/wifiapp/internal/credentials"
	"github.com/muurk/wifiapp/internal/wifiapp"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second
)

// Client talks to a portal over HTTP.
type Client struct {
	// BaseURL is the portal root (e.g., "http://192.168.0.1")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff doubles RetryDelay after every attempt
	UseExponentialBackoff bool

	// Dialer opens the websocket for Subscribe
	Dialer *websocket.Dialer
}

// NewClient creates a client for the portal at baseURL. A bare host or
// host:port is given an http:// scheme.
func NewClient(baseURL string) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
		Dialer:                websocket.DefaultDialer,
	}
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// Status fetches the current manager status.
func (c *Client) Status(ctx context.Context) (wifiapp.Status, error) {
	var status wifiapp.Status
	err := c.withRetry(ctx, func() error {
		return c.do(ctx, http.MethodGet, PathStatus, nil, http.StatusOK, &status)
	})
	return status, err
}

// Connect submits station credentials. Invalid credentials are rejected
// locally without a request.
func (c *Client) Connect(ctx context.Context, creds credentials.Credentials) (AcceptedResponse, error) {
	if errs := credentials.ValidateErrors(creds); len(errs) > 0 {
		return AcceptedResponse{}, &APIError{
			Type:    ErrTypeRejected,
			Message: credentials.FormatValidationErrors(errs),
		}
	}
	body := ConnectRequest{SSID: creds.SSID, Password: creds.Password}
	return c.post(ctx, PathConnect, body)
}

// Disconnect asks the manager to drop the station link.
func (c *Client) Disconnect(ctx context.Context) (AcceptedResponse, error) {
	return c.post(ctx, PathDisconnect, nil)
}

// Reconnect asks the manager to connect with its saved credentials.
func (c *Client) Reconnect(ctx context.Context) (AcceptedResponse, error) {
	return c.post(ctx, PathReconnect, nil)
}

func (c *Client) post(ctx context.Context, path string, body any) (AcceptedResponse, error) {
	var resp AcceptedResponse
	err := c.withRetry(ctx, func() error {
		return c.do(ctx, http.MethodPost, path, body, http.StatusAccepted, &resp)
	})
	return resp, err
}

// withRetry runs attempt until it succeeds, fails with a non-retryable
// error, runs out of retries or ctx is done.
func (c *Client) withRetry(ctx context.Context, attempt func() error) error {
	var lastErr error
	currentDelay := c.RetryDelay

	for i := 0; i <= c.MaxRetries; i++ {
		if i > 0 {
			timer := time.NewTimer(currentDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return lastErr
			case <-timer.C:
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		err := attempt()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return lastErr
}

// do performs a single request and decodes a want-status response into out.
func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &APIError{Type: ErrTypeParse, Message: "failed to encode request", Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return &APIError{Type: ErrTypeNetwork, Message: "failed to create request", Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return classifyNetworkError(fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return classifyNetworkError("failed to read response body", err)
	}

	if resp.StatusCode != want {
		var errBody ErrorResponse
		_ = json.Unmarshal(data, &errBody)
		return newStatusError(resp.StatusCode, errBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Type: ErrTypeParse, Message: "failed to parse response", StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// WatchURL returns the websocket URL of the status feed.
func (c *Client) WatchURL() (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid portal URL %q: %w", c.BaseURL, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + PathEvents
	return u.String(), nil
}

// Subscription is an open status feed.
type Subscription struct {
	conn *websocket.Conn
}

// Subscribe opens the status feed. The first event is the current status.
func (c *Client) Subscribe(ctx context.Context) (*Subscription, error) {
	wsURL, err := c.WatchURL()
	if err != nil {
		return nil, err
	}
	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, newStatusError(resp.StatusCode, ErrorResponse{})
		}
		return nil, classifyNetworkError("failed to open status feed", err)
	}
	return &Subscription{conn: conn}, nil
}

// Next blocks for the next event.
func (s *Subscription) Next() (Event, error) {
	var ev Event
	if err := s.conn.ReadJSON(&ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Close closes the feed.
func (s *Subscription) Close() error {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	return s.conn.Close()
}

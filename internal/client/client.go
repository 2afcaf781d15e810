package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/muurk/relay-server/internal/logging"
	"github.com/muurk/relay-server/internal/pins"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 2

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 500 * time.Millisecond
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client drives the pin endpoints of a relay server.
type Client struct {
	// BaseURL is the server root (e.g., "http://192.168.4.1:80")
	BaseURL string

	HTTPClient *http.Client

	// MaxRetries is the number of extra attempts after a network failure
	MaxRetries int

	RetryDelay time.Duration
}

// NewClientWithURL creates a client from a full base URL
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// Ping fetches the landing page and reports whether the server can be
// reached. Any HTTP answer counts: a board without a static tree says 404.
func (c *Client) Ping(ctx context.Context) error {
	err := c.do(ctx, http.MethodGet, "/", nil)
	if StatusCode(err) != 0 {
		return nil
	}
	return err
}

// SetPins drives each named output high (true) or low (false).
func (c *Client) SetPins(ctx context.Context, levels map[string]bool) error {
	body, err := json.Marshal(levels)
	if err != nil {
		return &RequestError{Type: ErrTypeEncode, Message: "failed to encode pin levels", Err: err}
	}
	return c.do(ctx, http.MethodPost, pins.PinsPath, body)
}

// SetPin drives a single output.
func (c *Client) SetPin(ctx context.Context, pin string, high bool) error {
	return c.SetPins(ctx, map[string]bool{pin: high})
}

// SetDuties sets the PWM duty of each named channel (0..65535).
func (c *Client) SetDuties(ctx context.Context, duties map[string]int) error {
	for pin, duty := range duties {
		if duty < 0 || duty > pins.MaxDuty {
			return &RequestError{Type: ErrTypeEncode, Message: fmt.Sprintf("duty %d for %s out of range", duty, pin)}
		}
	}
	body, err := json.Marshal(duties)
	if err != nil {
		return &RequestError{Type: ErrTypeEncode, Message: "failed to encode duties", Err: err}
	}
	return c.do(ctx, http.MethodPost, pins.PWMsPath, body)
}

// do runs one request with retries on network failures.
func (c *Client) do(ctx context.Context, method, path string, body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.RetryDelay):
			}
			logging.Debug("Retrying request",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("attempt", attempt),
			)
		}

		err := c.attempt(ctx, method, path, body)
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

func (c *Client) attempt(ctx context.Context, method, path string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return &RequestError{Type: ErrTypeNetwork, Message: "failed to create request", Err: err}
	}
	// the server answers one request per connection
	req.Close = true
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return newTransportError(method+" "+path+" failed", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	logging.Debug("Relay server answered",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	if resp.StatusCode != http.StatusOK {
		return newStatusError(resp.StatusCode)
	}
	return nil
}

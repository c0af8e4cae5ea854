package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	// MaxTimeout is the hard ceiling. No single request to Godot may block
	// longer than this. Callers can pass a shorter timeout but never a longer
	// one. Must stay high enough to cover the blocking wait tools, which
	// compute their request timeout as user duration plus headroom.
	MaxTimeout = 120 * time.Second

	// DefaultTimeout applies when a caller passes no per-request timeout.
	DefaultTimeout = 30 * time.Second

	defaultProbeTimeout = 2 * time.Second
	probePath           = "/info"
)

// Options tunes a Client. Zero values fall back to package defaults.
type Options struct {
	Timeout      time.Duration
	Ceiling      time.Duration
	ProbeTimeout time.Duration
}

// Client is an HTTP client for one of the Godot bridge servers (editor or
// runtime). It keeps a persistent connection channel to avoid a fresh TCP
// handshake per request, and recycles that channel on any transport fault.
type Client struct {
	baseURL      string
	timeout      time.Duration
	ceiling      time.Duration
	probeTimeout time.Duration

	mu      sync.Mutex
	channel *http.Client
}

// NewClient creates a client for the bridge server at host:port.
func NewClient(host string, port int, opts Options) *Client {
	ceiling := opts.Ceiling
	if ceiling <= 0 {
		ceiling = MaxTimeout
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if timeout > ceiling {
		timeout = ceiling
	}
	probeTimeout := opts.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}
	return &Client{
		baseURL:      fmt.Sprintf("http://%s:%d", host, port),
		timeout:      timeout,
		ceiling:      ceiling,
		probeTimeout: probeTimeout,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// EffectiveTimeout returns the timeout that will actually be used for a
// request, clamped to the ceiling.
func (c *Client) EffectiveTimeout(override time.Duration) time.Duration {
	if override <= 0 {
		return c.timeout
	}
	if override > c.ceiling {
		return c.ceiling
	}
	return override
}

// Get sends a GET request and returns the decoded JSON object.
func (c *Client) Get(ctx context.Context, path string, params map[string]string, timeout time.Duration) (map[string]any, error) {
	var result map[string]any
	if err := c.GetInto(ctx, path, params, timeout, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetInto sends a GET request and decodes the JSON response into v.
func (c *Client) GetInto(ctx context.Context, path string, params map[string]string, timeout time.Duration, v any) error {
	target := path
	if len(params) > 0 {
		values := url.Values{}
		for key, value := range params {
			values.Set(key, value)
		}
		target = path + "?" + values.Encode()
	}
	body, err := c.do(ctx, http.MethodGet, path, target, nil, timeout)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// Post sends a POST request with a JSON body and returns the decoded JSON object.
func (c *Client) Post(ctx context.Context, path string, payload map[string]any, timeout time.Duration) (map[string]any, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodPost, path, path, encoded, timeout)
	if err != nil {
		return nil, err
	}
	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// IsAvailable probes the bridge's status path with a short fixed timeout.
// Any failure of any kind yields false, never an error.
func (c *Client) IsAvailable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL+probePath, nil)
	if err != nil {
		return false
	}
	// Throwaway client: a probe must not disturb the persistent channel.
	probe := &http.Client{Timeout: c.probeTimeout}
	resp, err := probe.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// do issues a request with the clamped timeout. Connection-class faults are
// retried exactly once on a fresh channel; a timeout discards the channel and
// propagates without retry.
func (c *Client) do(ctx context.Context, method, path, target string, payload []byte, timeout time.Duration) ([]byte, error) {
	effective := c.EffectiveTimeout(timeout)

	body, err := c.attempt(ctx, method, target, payload, effective)
	if err == nil {
		return body, nil
	}
	if isTimeout(err) {
		// The server may still be processing; start the next call on a clean
		// channel, but do not reissue this one.
		c.Reset()
		return nil, &TimeoutError{Method: method, Path: path, Timeout: effective}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return nil, err
	}

	// Connection-class fault: the channel may be stale. Retry once fresh.
	c.Reset()
	body, err = c.attempt(ctx, method, target, payload, effective)
	if err == nil {
		return body, nil
	}
	if isTimeout(err) {
		c.Reset()
		return nil, &TimeoutError{Method: method, Path: path, Timeout: effective}
	}
	if errors.As(err, &statusErr) {
		return nil, err
	}
	c.Reset()
	return nil, &ConnectionError{BaseURL: c.baseURL, Method: method, Path: path, Err: err}
}

func (c *Client) attempt(ctx context.Context, method, target string, payload []byte, timeout time.Duration) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+target, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.getChannel().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Method: method, Path: req.URL.Path, StatusCode: resp.StatusCode}
	}
	return body, nil
}

func (c *Client) getChannel() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil {
		c.channel = &http.Client{Transport: &http.Transport{}}
	}
	return c.channel
}

// Reset discards the persistent channel so the next request creates a fresh
// one. A faulted channel is never reused.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.CloseIdleConnections()
		c.channel = nil
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

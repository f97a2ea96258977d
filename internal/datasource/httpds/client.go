// Package httpds is the HTTP side of a resource download: a small client and
// a Download helper that streams a response body into a writer and turns
// error statuses into *StatusError.
//
// Every request is attempted once. A failed download aborts the run and the
// scheduler that invoked the job decides when to try again.
package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout applies when Config.Timeout is zero; open-data exports can
// be large.
const DefaultTimeout = 5 * time.Minute

// Config configures the HTTP client.
type Config struct {
	// Timeout is the per-request timeout applied at the http.Client level.
	Timeout time.Duration

	// BaseHeaders are added to every request.
	BaseHeaders http.Header

	// Transport overrides the default *http.Transport.
	Transport http.RoundTripper
}

// Client wraps an http.Client with fixed request headers.
type Client struct {
	httpClient  *http.Client
	baseHeaders http.Header
}

// StatusError reports an HTTP response with a 4xx or 5xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpds: %s %s: %s", e.Method, e.URL, e.Status)
}

// NewClient constructs a Client from Config, applying defaults for zero values.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{Proxy: http.ProxyFromEnvironment}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		baseHeaders: cfg.BaseHeaders.Clone(),
	}
}

// Get issues a single GET. The response is returned whatever its status;
// the caller must close its body.
func (c *Client) Get(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	if url == "" {
		return nil, fmt.Errorf("httpds: url must not be empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpds: build request: %w", err)
	}
	for k, vs := range c.baseHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpds: GET %s: %w", url, err)
	}
	return resp, nil
}

// Download GETs url and copies the body into w. A 4xx/5xx response yields a
// *StatusError and nothing is written to w.
func (c *Client) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	resp, err := c.Get(ctx, url, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return 0, &StatusError{
			Method:     http.MethodGet,
			URL:        url,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("httpds: read body from %s: %w", url, err)
	}
	return n, nil
}

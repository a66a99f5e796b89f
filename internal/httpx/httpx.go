package httpx

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrTimeout is returned by FetchWithTimeout when the deadline elapses before
// the request settles.
var ErrTimeout = errors.New("timeout")

// Doer performs a single HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a small wrapper around http.Client with sane defaults.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Headers   map[string]string
}

// New builds a client with a traced transport. The per-request deadline is
// enforced by FetchWithTimeout, so timeout here is only an outer bound; zero
// disables it.
func New(timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(transport)},
		UserAgent: "pricecompare/1.0",
	}
}

// Do sets default headers and executes req.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	for k, v := range c.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return c.HTTP.Do(req)
}

type fetchResult struct {
	resp *http.Response
	err  error
}

// FetchWithTimeout races req against a timer. Whichever settles first decides
// the outcome: a response or transport error is returned as-is, an elapsed
// timer yields ErrTimeout. The losing request is not cancelled; if it
// completes later its body is closed and the result dropped.
// A non-positive timeout waits for the request alone.
func FetchWithTimeout(ctx context.Context, c Doer, req *http.Request, timeout time.Duration) (*http.Response, error) {
	results := make(chan fetchResult)
	abandoned := make(chan struct{})

	go func() {
		resp, err := c.Do(req)
		select {
		case results <- fetchResult{resp: resp, err: err}:
		case <-abandoned:
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
		}
	}()

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case r := <-results:
		return r.resp, r.err
	case <-deadline:
		close(abandoned)
		return nil, ErrTimeout
	case <-ctx.Done():
		close(abandoned)
		return nil, ctx.Err()
	}
}

package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"pricecompare/internal/httpx"
	"pricecompare/internal/logger"
	"pricecompare/internal/provider"
)

const maxBodyBytes = 4 << 20

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=lookup_test -destination=mock_http_client_test.go -source=router.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result is the outcome of one lookup. Status is 200 for any 2xx upstream
// status and the upstream status otherwise.
type Result struct {
	Status int
	Quote  provider.Quote
}

// Router dispatches lookups to the adapter selected by name.
type Router struct {
	registry *provider.Registry
	client   HTTPClient
	log      *logger.Entry
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the log entry used for recovered adapter failures.
func WithLogger(e *logger.Entry) Option {
	return func(r *Router) { r.log = e }
}

func NewRouter(registry *provider.Registry, client HTTPClient, opts ...Option) *Router {
	r := &Router{
		registry: registry,
		client:   client,
		log:      logger.GetLogger().WithComponent("lookup"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type lookupOptions struct {
	timeout time.Duration
}

// LookupOption adjusts a single lookup.
type LookupOption func(*lookupOptions)

// WithTimeout overrides the provider's default deadline for one call.
func WithTimeout(d time.Duration) LookupOption {
	return func(o *lookupOptions) { o.timeout = d }
}

// Lookup performs exactly one upstream request. Configuration problems fail
// before any network call. A timeout is a hard failure; a non-2xx upstream
// status is not, the adapter still extracts what it can from the body.
func (r *Router) Lookup(ctx context.Context, providerName, apiKey, targetURL string, opts ...LookupOption) (Result, error) {
	if strings.TrimSpace(apiKey) == "" {
		return Result{}, &provider.ConfigError{Err: provider.ErrMissingCredential}
	}
	a, ok := r.registry.Lookup(providerName)
	if !ok {
		return Result{}, &provider.ConfigError{
			Err:    provider.ErrUnknownProvider,
			Detail: fmt.Sprintf("unknown provider %q (known: %s)", providerName, strings.Join(r.registry.Names(), ", ")),
		}
	}

	o := lookupOptions{timeout: a.Timeout()}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := otel.Tracer("pricecompare/lookup").Start(ctx, "provider.lookup")
	defer span.End()
	span.SetAttributes(attribute.String("provider", a.Name()), attribute.Int64("timeout_ms", o.timeout.Milliseconds()))

	// The outbound request outlives a lost race, so it does not inherit the
	// caller's cancellation.
	req, err := a.NewRequest(context.WithoutCancel(ctx), apiKey, targetURL)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("%s: %w", a.Name(), err)
	}

	resp, err := httpx.FetchWithTimeout(ctx, r.client, req, o.timeout)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, httpx.ErrTimeout) {
			return Result{}, fmt.Errorf("%s after %s: %w", a.Name(), o.timeout, provider.ErrUpstreamTimeout)
		}
		return Result{}, &provider.UpstreamError{Provider: a.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, &provider.UpstreamError{Provider: a.Name(), Err: fmt.Errorf("reading response: %w", err), Body: body}
	}
	span.SetAttributes(attribute.Int("upstream_status", resp.StatusCode))

	q, err := a.Normalize(body, targetURL)
	if err != nil {
		r.log.WithFields(logger.Fields{
			"provider": a.Name(),
			"status":   resp.StatusCode,
			"bytes":    len(body),
		}).WithError(err).Warn("upstream body not parsed; returning empty quote")
	}

	status := resp.StatusCode
	if status >= 200 && status < 300 {
		status = http.StatusOK
	}
	return Result{Status: status, Quote: q}, nil
}

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Quote is the normalized product snapshot returned by every adapter.
// Price is kept as observed upstream (json.Number, string, or raw JSON).
type Quote struct {
	Title *string         `json:"title"`
	Price any             `json:"price"`
	Image *string         `json:"image"`
	URL   string          `json:"url"`
	Raw   json.RawMessage `json:"raw"`
}

var (
	// ErrParseFailure means the upstream body was not JSON. The Quote that
	// accompanies it is still usable.
	ErrParseFailure = errors.New("upstream body is not valid JSON")

	ErrUnknownProvider   = errors.New("unknown provider")
	ErrMissingCredential = errors.New("missing credential")
	ErrUpstreamTimeout   = errors.New("timeout")
)

// ConfigError reports missing or invalid configuration for a lookup.
type ConfigError struct {
	Err    error
	Detail string
}

func (e *ConfigError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// UpstreamError is a transport failure talking to a provider. Body holds
// whatever part of the upstream response was read before the failure.
type UpstreamError struct {
	Provider string
	Err      error
	Body     []byte
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return e.Provider + ": upstream error"
	}
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Adapter is one upstream provider: it knows how to build the request and how
// to turn the response body into a Quote.
type Adapter interface {
	Name() string
	// Timeout is the default deadline for one request to this provider.
	Timeout() time.Duration
	NewRequest(ctx context.Context, apiKey, targetURL string) (*http.Request, error)
	Normalize(body []byte, targetURL string) (Quote, error)
}

// Registry maps provider names to adapters. Names are case-insensitive.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds a, replacing any adapter with the same name.
func (r *Registry) Register(a Adapter) {
	r.adapters[normalizeName(a.Name())] = a
}

func (r *Registry) Lookup(name string) (Adapter, bool) {
	a, ok := r.adapters[normalizeName(name)]
	return a, ok
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.adapters))
	for n := range r.adapters {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func normalizeName(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

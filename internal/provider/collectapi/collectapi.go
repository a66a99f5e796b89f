package collectapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"pricecompare/internal/provider"
)

const (
	// Name is the registry key of this provider.
	Name = "collectapi"

	DefaultTimeout = 15 * time.Second

	baseURL = "https://api.collectapi.com/ecommerce/amazon/product"
)

// The product object moves between "result" and "data" depending on the
// endpoint, so extraction runs on the unwrapped envelope.
var chains = provider.Chains{
	Title: provider.Chain{"title", "name"},
	Price: provider.Chain{"price", "mrp", "discountedPrice"},
	Image: provider.Chain{"image", "images.0"},
}

// Adapter talks to the CollectAPI e-commerce product endpoint. The API key is
// sent verbatim in the Authorization header.
type Adapter struct {
	baseURL string
	timeout time.Duration
	header  http.Header
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithBaseURL sets the product endpoint URL.
func WithBaseURL(u string) Option {
	return func(a *Adapter) {
		if u != "" {
			a.baseURL = u
		}
	}
}

// WithTimeout overrides the default request deadline.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(a *Adapter) {
		for key, values := range header {
			for _, value := range values {
				a.header.Add(key, value)
			}
		}
	}
}

func New(opts ...Option) *Adapter {
	a := &Adapter{baseURL: baseURL, timeout: DefaultTimeout, header: http.Header{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Timeout() time.Duration { return a.timeout }

func (a *Adapter) NewRequest(ctx context.Context, apiKey, targetURL string) (*http.Request, error) {
	query := url.Values{}
	query.Set("url", targetURL)
	endpoint := fmt.Sprintf("%s?%s", a.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = a.header.Clone()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", apiKey)
	return req, nil
}

// Normalize never fails on missing fields. A body that is not JSON yields an
// all-null Quote together with provider.ErrParseFailure.
func (a *Adapter) Normalize(body []byte, targetURL string) (provider.Quote, error) {
	root, raw, err := provider.Parse(body)
	q := provider.Quote{URL: targetURL, Raw: raw}
	chains.Fill(&q, provider.Unwrap(root, "result", "data"))
	return q, err
}

package priceapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"pricecompare/internal/provider"
)

const (
	// Name is the registry key of this provider.
	Name = "priceapi"

	DefaultTimeout = 20 * time.Second

	baseURL = "https://api.priceapi.com/v2/jobs"
)

// Job payloads sometimes nest the product one level deeper under "result",
// so every attribute checks the job object first and its "result" second.
var chains = provider.Chains{
	Title: provider.Chain{"title", "result.title"},
	Price: provider.Chain{"price", "result.price"},
	Image: provider.Chain{"image", "result.image"},
}

// Adapter talks to the PriceAPI jobs endpoint. The API key travels as the
// "token" query parameter.
type Adapter struct {
	baseURL string
	timeout time.Duration
	source  string
	country string
	topic   string
	key     string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithBaseURL sets the jobs endpoint URL.
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

// WithSource sets the marketplace queried by the job (default amazon).
func WithSource(source string) Option {
	return func(a *Adapter) {
		if source != "" {
			a.source = source
		}
	}
}

// WithCountry sets the marketplace country (default in).
func WithCountry(country string) Option {
	return func(a *Adapter) {
		if country != "" {
			a.country = country
		}
	}
}

func New(opts ...Option) *Adapter {
	a := &Adapter{
		baseURL: baseURL,
		timeout: DefaultTimeout,
		source:  "amazon",
		country: "in",
		topic:   "product_and_offers",
		key:     "ean",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Timeout() time.Duration { return a.timeout }

func (a *Adapter) NewRequest(ctx context.Context, apiKey, targetURL string) (*http.Request, error) {
	query := url.Values{}
	query.Set("token", apiKey)
	query.Set("source", a.source)
	query.Set("country", a.country)
	query.Set("topic", a.topic)
	query.Set("key", a.key)
	query.Set("values", targetURL)
	endpoint := fmt.Sprintf("%s?%s", a.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return req, nil
}

// Normalize unwraps the job envelope (first element of a list, else the
// "result" field, else the payload) before extraction.
func (a *Adapter) Normalize(body []byte, targetURL string) (provider.Quote, error) {
	root, raw, err := provider.Parse(body)
	q := provider.Quote{URL: targetURL, Raw: raw}
	chains.Fill(&q, job(root))
	return q, err
}

func job(root gjson.Result) gjson.Result {
	if root.IsArray() {
		jobs := root.Array()
		if len(jobs) == 0 {
			return gjson.Result{}
		}
		return jobs[0]
	}
	return provider.Unwrap(root, "result")
}

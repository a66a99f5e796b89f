package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PerClient keeps one token bucket per client address. Buckets idle for
// longer than IdleTTL are dropped on the next sweep.
type PerClient struct {
	limit   rate.Limit
	burst   int
	IdleTTL time.Duration

	now func() time.Time

	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewPerClient allows requestsPerMinute per client with the given burst.
// A non-positive rate disables limiting.
func NewPerClient(requestsPerMinute, burst int) *PerClient {
	if burst <= 0 {
		burst = 1
	}
	lim := rate.Inf
	if requestsPerMinute > 0 {
		lim = rate.Limit(float64(requestsPerMinute) / 60.0)
	}
	return &PerClient{
		limit:   lim,
		burst:   burst,
		IdleTTL: 10 * time.Minute,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Allow reports whether key may make a request now, consuming a token if so.
func (p *PerClient) Allow(key string) bool {
	if p.limit == rate.Inf {
		return true
	}
	now := p.now()

	p.mu.Lock()
	c, ok := p.clients[key]
	if !ok {
		c = &client{lim: rate.NewLimiter(p.limit, p.burst)}
		p.clients[key] = c
	}
	c.seen = now
	if now.Sub(p.lastSweep) > p.IdleTTL {
		for k, v := range p.clients {
			if now.Sub(v.seen) > p.IdleTTL {
				delete(p.clients, k)
			}
		}
		p.lastSweep = now
	}
	p.mu.Unlock()

	return c.lim.AllowN(now, 1)
}

// Middleware rejects over-limit requests with reject, keyed by client IP.
func (p *PerClient) Middleware(reject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !p.Allow(ClientIP(r)) {
				w.Header().Set("Retry-After", "60")
				reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP is the host part of RemoteAddr, or RemoteAddr itself when it has
// no port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

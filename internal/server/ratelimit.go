package server

import (
	"math"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// Limit is a token-bucket budget: Rate tokens per second, holding at most
// Burst.
type Limit struct {
	Rate  float64
	Burst int
}

// DefaultLimits are keyed by route name. Routes without an entry are not
// limited.
var DefaultLimits = map[string]Limit{
	routeRender:         {Rate: 50, Burst: 100},
	routeValidate:       {Rate: 50, Burst: 100},
	routeValidateInline: {Rate: 20, Burst: 40},
	routeListTemplates:  {Rate: 100, Burst: 200},
	routeGetTemplate:    {Rate: 100, Burst: 200},
	routeQuality:        {Rate: 20, Burst: 40},
	routeLimits:         {Rate: 10, Burst: 20},
	routeHealth:         {Rate: 1000, Burst: 1000},
}

type bucket struct {
	limit   Limit
	tokens  float64
	updated time.Time
	allowed int64
	denied  int64
}

func (b *bucket) refill(now time.Time) {
	if elapsed := now.Sub(b.updated).Seconds(); elapsed > 0 {
		b.tokens += elapsed * b.limit.Rate
		b.tokens = math.Min(b.tokens, float64(b.limit.Burst))
	}
	b.updated = now
}

func (b *bucket) take(now time.Time) bool {
	b.refill(now)
	if b.tokens < 1 {
		b.denied++
		return false
	}
	b.tokens--
	b.allowed++
	return true
}

// RateLimiter keeps one bucket per named route.
type RateLimiter struct {
	mu      sync.Mutex
	limits  map[string]Limit
	buckets map[string]*bucket
	enabled bool
	now     func() time.Time
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithLimits overrides the limits of the named routes. A zero Rate and Burst
// removes the route's limit.
func WithLimits(limits map[string]Limit) RateLimiterOption {
	return func(rl *RateLimiter) {
		for route, limit := range limits {
			if limit.Rate <= 0 && limit.Burst <= 0 {
				delete(rl.limits, route)
				continue
			}
			rl.limits[route] = limit
		}
	}
}

// WithEnabled turns limiting on or off. Disabled limiters still report their
// configured limits.
func WithEnabled(enabled bool) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.enabled = enabled
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.now = now
	}
}

// NewRateLimiter creates a limiter seeded with DefaultLimits.
func NewRateLimiter(opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		limits:  make(map[string]Limit, len(DefaultLimits)),
		buckets: make(map[string]*bucket),
		enabled: true,
		now:     time.Now,
	}
	for route, limit := range DefaultLimits {
		rl.limits[route] = limit
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Allow consumes a token from route's bucket.
func (rl *RateLimiter) Allow(route string) bool {
	if !rl.enabled {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	limit, ok := rl.limits[route]
	if !ok {
		return true
	}
	now := rl.now()
	b, ok := rl.buckets[route]
	if !ok {
		b = &bucket{limit: limit, tokens: float64(limit.Burst), updated: now}
		rl.buckets[route] = b
	}
	return b.take(now)
}

// RouteUsage reports one route's limit and what it has admitted so far.
type RouteUsage struct {
	Route     string  `json:"route"`
	Rate      float64 `json:"rate"`
	Burst     int     `json:"burst"`
	Available float64 `json:"available"`
	Allowed   int64   `json:"allowed"`
	Denied    int64   `json:"denied"`
}

// Usage returns every limited route, sorted by name.
func (rl *RateLimiter) Usage() []RouteUsage {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	usage := make([]RouteUsage, 0, len(rl.limits))
	for route, limit := range rl.limits {
		u := RouteUsage{Route: route, Rate: limit.Rate, Burst: limit.Burst, Available: float64(limit.Burst)}
		if b, ok := rl.buckets[route]; ok {
			b.refill(now)
			u.Available, u.Allowed, u.Denied = b.tokens, b.allowed, b.denied
		}
		usage = append(usage, u)
	}
	sort.Slice(usage, func(i, j int) bool { return usage[i].Route < usage[j].Route })
	return usage
}

// Enabled reports whether requests are being limited.
func (rl *RateLimiter) Enabled() bool {
	return rl.enabled
}

// Middleware rejects requests over their route's limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := ""
		if current := mux.CurrentRoute(r); current != nil {
			route = current.GetName()
		}
		if !rl.Allow(route) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded for "+route, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

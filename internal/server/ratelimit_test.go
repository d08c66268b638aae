package server

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestRateLimiterBurstAndRefill(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(
		WithClock(clock.Now),
		WithLimits(map[string]Limit{routeRender: {Rate: 10, Burst: 5}}),
	)

	for i := 0; i < 5; i++ {
		if !rl.Allow(routeRender) {
			t.Fatalf("request %d should be allowed within the burst", i)
		}
	}
	if rl.Allow(routeRender) {
		t.Fatal("request past the burst should be denied")
	}

	clock.Advance(100 * time.Millisecond)
	if !rl.Allow(routeRender) {
		t.Fatal("one token should have refilled")
	}
	if rl.Allow(routeRender) {
		t.Fatal("only one token should have refilled")
	}

	clock.Advance(time.Hour)
	for i := 0; i < 5; i++ {
		if !rl.Allow(routeRender) {
			t.Fatalf("request %d after a long idle should be allowed", i)
		}
	}
	if rl.Allow(routeRender) {
		t.Fatal("refill must be capped at the burst")
	}
}

func TestRateLimiterRoutesAreIndependent(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(WithClock(clock.Now), WithLimits(map[string]Limit{
		routeRender:   {Rate: 1, Burst: 1},
		routeValidate: {Rate: 1, Burst: 1},
	}))

	require.True(t, rl.Allow(routeRender))
	require.False(t, rl.Allow(routeRender))
	require.True(t, rl.Allow(routeValidate))
}

func TestRateLimiterUnlistedAndRemovedRoutes(t *testing.T) {
	rl := NewRateLimiter(WithLimits(map[string]Limit{routeHealth: {}}))
	for i := 0; i < 2000; i++ {
		if !rl.Allow("unlisted") || !rl.Allow(routeHealth) {
			t.Fatalf("request %d to an unlimited route was denied", i)
		}
	}
	for _, u := range rl.Usage() {
		require.NotEqual(t, routeHealth, u.Route)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(
		WithEnabled(false),
		WithLimits(map[string]Limit{routeRender: {Rate: 0.001, Burst: 1}}),
	)
	for i := 0; i < 10; i++ {
		require.True(t, rl.Allow(routeRender))
	}
	require.False(t, rl.Enabled())
}

func TestRateLimiterUsage(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(WithClock(clock.Now), WithLimits(map[string]Limit{
		routeRender: {Rate: 2, Burst: 1},
	}))
	rl.Allow(routeRender)
	rl.Allow(routeRender)
	clock.Advance(250 * time.Millisecond)

	usage := rl.Usage()
	require.Len(t, usage, len(DefaultLimits))
	for i := 1; i < len(usage); i++ {
		require.Less(t, usage[i-1].Route, usage[i].Route)
	}
	for _, u := range usage {
		switch u.Route {
		case routeRender:
			require.Equal(t, RouteUsage{Route: routeRender, Rate: 2, Burst: 1, Available: 0.5, Allowed: 1, Denied: 1}, u)
		case routeGetTemplate:
			require.Equal(t, float64(u.Burst), u.Available)
			require.Zero(t, u.Allowed)
		}
	}
}

func TestLimitsEndpoint(t *testing.T) {
	limiter := NewRateLimiter(WithLimits(map[string]Limit{routeHealth: {Rate: 0.001, Burst: 1}}))
	ts := newTestServer(t, WithRateLimiter(limiter))

	status, _ := doJSON(t, http.MethodGet, ts.URL+"/healthz", "")
	require.Equal(t, http.StatusOK, status)
	status, _ = doJSON(t, http.MethodGet, ts.URL+"/healthz", "")
	require.Equal(t, http.StatusTooManyRequests, status)

	status, body := doJSON(t, http.MethodGet, ts.URL+"/v1/limits", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["enabled"])

	routes, ok := body["routes"].([]any)
	require.True(t, ok)
	var health map[string]any
	for _, r := range routes {
		entry := r.(map[string]any)
		if entry["route"] == routeHealth {
			health = entry
		}
	}
	require.NotNil(t, health, "health route missing from %v", routes)
	require.Equal(t, float64(1), health["allowed"])
	require.Equal(t, float64(1), health["denied"])
}

func TestLimitsEndpointWithoutLimiter(t *testing.T) {
	ts := newTestServer(t)
	status, body := doJSON(t, http.MethodGet, ts.URL+"/v1/limits", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, false, body["enabled"])
	require.Equal(t, []any{}, body["routes"])
}

package governance

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcarana/rdap-server/pkg/domain"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type countingRecorder struct{ n int }

func (c *countingRecorder) RecordRateLimited() { c.n++ }

func newTestLimiter(rps float64, burst int) (*RateLimiter, *fakeClock, *countingRecorder) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	rec := &countingRecorder{}
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: rps, BurstSize: burst}, rec, zerolog.Nop())
	rl.now = clock.now
	return rl, clock, rec
}

func TestRateLimiterBurstAndRefill(t *testing.T) {
	rl, clock, _ := newTestLimiter(2, 3)

	for i := 0; i < 3; i++ {
		allowed, _ := rl.Allow("192.0.2.1")
		require.True(t, allowed, "request %d", i)
	}
	allowed, wait := rl.Allow("192.0.2.1")
	assert.False(t, allowed)
	assert.Equal(t, 500*time.Millisecond, wait)

	// Other clients have their own bucket.
	allowed, _ = rl.Allow("192.0.2.2")
	assert.True(t, allowed)

	clock.advance(500 * time.Millisecond)
	allowed, _ = rl.Allow("192.0.2.1")
	assert.True(t, allowed)
	allowed, _ = rl.Allow("192.0.2.1")
	assert.False(t, allowed)

	// Refill never exceeds the burst size.
	clock.advance(time.Hour)
	for i := 0; i < 3; i++ {
		allowed, _ = rl.Allow("192.0.2.1")
		assert.True(t, allowed)
	}
	allowed, _ = rl.Allow("192.0.2.1")
	assert.False(t, allowed)
}

func TestRateLimiterDisabled(t *testing.T) {
	rl, _, _ := newTestLimiter(0, 0)
	for i := 0; i < 100; i++ {
		allowed, _ := rl.Allow("client")
		require.True(t, allowed)
	}
	assert.Zero(t, rl.Len())
}

func TestRateLimiterPrunesIdleClients(t *testing.T) {
	rl, clock, _ := newTestLimiter(1, 1)

	rl.Allow("a")
	rl.Allow("b")
	assert.Equal(t, 2, rl.Len())

	clock.advance(defaultIdleTTL + defaultPruneInterval)
	rl.Allow("c")
	assert.Equal(t, 1, rl.Len())
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl, _, rec := newTestLimiter(1, 1)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/domain/example.mx", nil)
		req.RemoteAddr = "198.51.100.7:51234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, serve(http.MethodGet).Code)

	w := serve(http.MethodGet)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, "application/rdap+json", w.Header().Get("Content-Type"))

	var body domain.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusTooManyRequests, body.ErrorCode)
	assert.Equal(t, []string{domain.ConformanceLevel}, body.Conformance)
	assert.NotEmpty(t, body.Description)

	w = serve(http.MethodHead)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Zero(t, w.Body.Len())

	assert.Equal(t, 2, rec.n)
}

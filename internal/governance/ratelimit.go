package governance

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pcarana/rdap-server/pkg/dispatch"
	"github.com/pcarana/rdap-server/pkg/domain"
	"github.com/pcarana/rdap-server/pkg/negotiate"
)

const (
	defaultIdleTTL       = 10 * time.Minute
	defaultPruneInterval = time.Minute
)

// RateLimitRecorder counts rejected requests.
type RateLimitRecorder interface {
	RecordRateLimited()
}

// RateLimiterConfig defines the per-client budget.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// IdleTTL is how long an unused client bucket is kept.
	IdleTTL time.Duration
}

// RateLimiter implements token bucket rate limiting per client key.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	rate      float64
	capacity  float64
	idleTTL   time.Duration
	lastPrune time.Time
	now       func() time.Time

	metrics RateLimitRecorder
	logger  zerolog.Logger
}

// NewRateLimiter creates a rate limiter with the provided configuration.
func NewRateLimiter(cfg RateLimiterConfig, metrics RateLimitRecorder, logger zerolog.Logger) *RateLimiter {
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = max(1, int(math.Ceil(cfg.RequestsPerSecond)))
	}
	idle := cfg.IdleTTL
	if idle <= 0 {
		idle = defaultIdleTTL
	}
	return &RateLimiter{
		buckets:  make(map[string]*tokenBucket),
		rate:     cfg.RequestsPerSecond,
		capacity: float64(burst),
		idleTTL:  idle,
		now:      time.Now,
		metrics:  metrics,
		logger:   logger.With().Str("component", "rate_limiter").Logger(),
	}
}

// Allow reports whether the client identified by key may make a request now.
// When it may not, the returned duration is the wait until a token is
// available.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	if rl.rate <= 0 {
		return true, 0
	}

	rl.mu.Lock()
	now := rl.now()
	rl.pruneLocked(now)
	bucket, ok := rl.buckets[key]
	if !ok {
		bucket = &tokenBucket{tokens: rl.capacity, lastRefill: now}
		rl.buckets[key] = bucket
	}
	allowed, wait := bucket.take(now, rl.rate, rl.capacity)
	rl.mu.Unlock()

	return allowed, wait
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// pruneLocked drops buckets idle for longer than idleTTL. Callers hold mu.
func (rl *RateLimiter) pruneLocked(now time.Time) {
	if now.Sub(rl.lastPrune) < defaultPruneInterval {
		return
	}
	rl.lastPrune = now
	for key, bucket := range rl.buckets {
		if now.Sub(bucket.lastRefill) > rl.idleTTL {
			delete(rl.buckets, key)
		}
	}
}

// Middleware rejects over-budget clients with 429, a Retry-After header and
// an RDAP error body. Clients are keyed by remote address; install chi's
// RealIP first when running behind a proxy.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		allowed, wait := rl.Allow(key)
		if allowed {
			next.ServeHTTP(w, r)
			return
		}

		if rl.metrics != nil {
			rl.metrics.RecordRateLimited()
		}
		rl.logger.Debug().Str("client", key).Dur("retry_after", wait).Msg("Request rate limited")

		seconds := int(math.Ceil(wait.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(max(1, seconds)))
		w.Header().Set("Content-Type", negotiate.MediaTypeRDAP)
		w.WriteHeader(http.StatusTooManyRequests)
		if r.Method == http.MethodHead {
			return
		}
		err := domain.NewRequestError(http.StatusTooManyRequests, "Too many requests, retry later.")
		_ = json.NewEncoder(w).Encode(dispatch.ErrorBody(http.StatusTooManyRequests, err))
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// tokenBucket holds one client's tokens. It is guarded by RateLimiter.mu.
type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// take refills the bucket and attempts to consume one token.
func (tb *tokenBucket) take(now time.Time, rate, capacity float64) (bool, time.Duration) {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed > 0 {
		tb.tokens = math.Min(capacity, tb.tokens+elapsed*rate)
		tb.lastRefill = now
	}

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true, 0
	}
	missing := 1.0 - tb.tokens
	return false, time.Duration(missing / rate * float64(time.Second))
}

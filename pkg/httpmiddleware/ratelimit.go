package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests a key may make per Window.
	Max    int
	Window time.Duration
	// KeyFunc identifies the client. Defaults to the client IP.
	KeyFunc func(*http.Request) string
	// Skip exempts matching requests, e.g. health probes. Optional.
	Skip func(*http.Request) bool
}

// SkipPaths returns a Skip func matching the given exact paths.
func SkipPaths(paths ...string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.URL.Path]
		return ok
	}
}

// counter holds two adjacent fixed windows for one key. The previous window
// counts in proportion to how much of it the sliding window still covers.
type counter struct {
	prev, curr     float64
	prevAt, currAt time.Time
}

func (c *counter) advance(now time.Time, size time.Duration) {
	if now.Sub(c.currAt) < size {
		return
	}
	c.prev, c.prevAt = c.curr, c.currAt
	c.curr, c.currAt = 0, now.Truncate(size)
	if now.Sub(c.prevAt) >= 2*size {
		c.prev = 0
	}
}

func (c *counter) estimate(now time.Time, size time.Duration) float64 {
	overlap := max(0, 1-float64(now.Sub(c.currAt))/float64(size))
	return c.prev*overlap + c.curr
}

// verdict is the outcome of a single check.
type verdict struct {
	limit     int
	remaining int
	reset     time.Time
	allowed   bool
}

func (v verdict) setHeaders(h http.Header, now time.Time) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(v.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(v.reset.Unix(), 10))
	if !v.allowed {
		wait := max(0, v.reset.Sub(now).Seconds())
		h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait))))
	}
}

type limiter struct {
	cfg RateLimitConfig

	mu       sync.Mutex
	counters map[string]*counter
}

func newRateLimiter(cfg RateLimitConfig) *limiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}
	return &limiter{cfg: cfg, counters: make(map[string]*counter)}
}

// allow records a request for key at now unless the key is over its limit.
func (l *limiter) allow(key string, now time.Time) verdict {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.counters[key]
	if !ok {
		c = &counter{currAt: now}
		l.counters[key] = c
	}
	c.advance(now, l.cfg.Window)

	v := verdict{limit: l.cfg.Max, reset: c.currAt.Add(l.cfg.Window)}
	used := c.estimate(now, l.cfg.Window)
	if used >= float64(l.cfg.Max) {
		return v
	}
	c.curr++
	v.allowed = true
	v.remaining = max(0, int(float64(l.cfg.Max)-used-1))
	return v
}

// evict drops keys idle for two full windows.
func (l *limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, c := range l.counters {
		if now.Sub(c.currAt) >= 2*l.cfg.Window {
			delete(l.counters, key)
		}
	}
}

func (l *limiter) sweep(ctx context.Context) {
	ticker := time.NewTicker(2 * l.cfg.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.evict(now)
		}
	}
}

func (l *limiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.cfg.Skip != nil && l.cfg.Skip(r) {
			next.ServeHTTP(w, r)
			return
		}
		now := time.Now()
		v := l.allow(l.cfg.KeyFunc(r), now)
		v.setHeaders(w.Header(), now)
		if !v.allowed {
			WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit enforces a per-key sliding window limit, answering 429 with the
// standard error body once it is exceeded. Every limited response carries
// X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset. Idle keys
// are never evicted; long-running servers use RateLimitWithCleanup.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newRateLimiter(cfg).middleware
}

// RateLimitWithCleanup is RateLimit plus a goroutine that evicts idle keys
// until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newRateLimiter(cfg)
	go l.sweep(ctx)
	return l.middleware
}

// clientIP keys requests by the first X-Forwarded-For hop, then X-Real-IP,
// then the connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package httpmiddleware

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client sliding window limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per Window.
	Max int
	// Window is the sliding window length.
	Window time.Duration
	// KeyFunc derives the limiter key from a request. When nil, clientKey
	// is used: the shopper identity header when present, the client IP
	// otherwise.
	KeyFunc func(*http.Request) string
}

// window holds the request counts for one client across two adjacent
// fixed windows. The sliding estimate weights the previous window by its
// remaining overlap, which smooths the boundary without per-request
// timestamps.
type window struct {
	start time.Time
	count int
	prev  int
}

type limiter struct {
	max    int
	length time.Duration

	mu      sync.Mutex
	clients map[string]*window
}

func newLimiter(max int, length time.Duration) *limiter {
	return &limiter{
		max:     max,
		length:  length,
		clients: make(map[string]*window),
	}
}

// take records a request for key at time now. It reports whether the request
// fits the limit, how many requests remain, and when the window resets.
func (l *limiter) take(key string, now time.Time) (allowed bool, remaining int, resetAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.clients[key]
	if !ok {
		w = &window{start: now.Truncate(l.length)}
		l.clients[key] = w
	}

	if age := now.Sub(w.start); age >= l.length {
		if age >= 2*l.length {
			w.prev = 0
		} else {
			w.prev = w.count
		}
		w.count = 0
		w.start = now.Truncate(l.length)
	}

	overlap := 1 - now.Sub(w.start).Seconds()/l.length.Seconds()
	if overlap < 0 {
		overlap = 0
	}
	estimate := float64(w.prev)*overlap + float64(w.count)
	resetAt = w.start.Add(l.length)

	if estimate >= float64(l.max) {
		return false, 0, resetAt
	}

	w.count++
	remaining = int(float64(l.max) - estimate - 1)
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining, resetAt
}

// sweep drops clients idle for at least two windows.
func (l *limiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.clients {
		if now.Sub(w.start) >= 2*l.length {
			delete(l.clients, key)
		}
	}
}

// RateLimit enforces a per-client sliding window limit. Over-limit requests
// get 429 with a JSON body and a Retry-After header; every response carries
// X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset.
func RateLimit(cfg RateLimitConfig) Middleware {
	return rateLimit(cfg, newLimiter(cfg.Max, cfg.Window))
}

// RateLimitWithCleanup is RateLimit plus a background sweeper that evicts
// idle clients until ctx is cancelled.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg.Max, cfg.Window)
	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.sweep(now)
			}
		}
	}()
	return rateLimit(cfg, l)
}

func rateLimit(cfg RateLimitConfig, l *limiter) Middleware {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = clientKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining, resetAt := l.take(keyFunc(r), time.Now())

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				retryAfter := math.Ceil(time.Until(resetAt).Seconds())
				if retryAfter < 0 {
					retryAfter = 0
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"code":    http.StatusTooManyRequests,
					"message": "rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey buckets requests by shopper identity when the request carries
// one, so a shared NAT does not starve unrelated shoppers, and by client IP
// otherwise.
func clientKey(r *http.Request) string {
	if userID := r.Header.Get("X-User-ID"); userID != "" {
		return "user:" + userID
	}
	if token := r.Header.Get("X-Session-Token"); token != "" {
		return "session:" + token
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			xff = xff[:i]
		}
		return "ip:" + strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// callerWindow tracks one caller's fixed window. Counters reset when the
// window rolls over rather than sliding, which keeps the hot path to a
// single map lookup under the lock.
type callerWindow struct {
	windowStart time.Time
	count       int
}

type limiter struct {
	mu      sync.Mutex
	callers map[string]*callerWindow
	limit   int
	window  time.Duration
}

func newLimiter(limit int, window time.Duration) *limiter {
	l := &limiter{
		callers: make(map[string]*callerWindow),
		limit:   limit,
		window:  window,
	}

	go l.evictIdle()

	return l
}

func (l *limiter) evictIdle() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		for key, cw := range l.callers {
			if time.Since(cw.windowStart) > 2*l.window {
				delete(l.callers, key)
			}
		}
		l.mu.Unlock()
	}
}

// allow reports whether the caller may proceed. When denied it also returns
// how long until the caller's window resets.
func (l *limiter) allow(key string) (bool, time.Duration) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	cw, ok := l.callers[key]
	if !ok || now.Sub(cw.windowStart) > l.window {
		l.callers[key] = &callerWindow{windowStart: now, count: 1}
		return true, 0
	}

	if cw.count >= l.limit {
		return false, l.window - now.Sub(cw.windowStart)
	}

	cw.count++
	return true, 0
}

// callerKey prefers the tenant header so one noisy tenant behind a shared
// proxy cannot starve the others. Anonymous traffic falls back to the
// client address, taking the first hop from X-Forwarded-For when present.
func callerKey(r *http.Request) string {
	if tenant := r.Header.Get("X-Tenant-ID"); tenant != "" {
		return "tenant:" + tenant
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return "ip:" + strings.TrimSpace(fwd)
	}

	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return "ip:" + host
}

func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	l := newLimiter(requestsPerMinute, time.Minute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retryAfter := l.allow(callerKey(r))
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error": "rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

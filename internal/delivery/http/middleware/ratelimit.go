package middleware

import (
	"math"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"estateadmin/internal/delivery/http/helpers"
)

// Defaults for the invite write endpoints: 40 write actions per key per
// 60-second window.
const (
	DefaultRateLimit  = 40
	DefaultRateWindow = 60 * time.Second
)

// sweepEvery bounds how often Allow scans the whole map for idle keys.
const sweepEvery = 256

// SlidingWindow is an in-memory sliding-window rate limiter. State is
// process-local: it resets on restart and is not shared across instances, so
// it is an abuse deterrent, not a security boundary. The clock is injectable
// for tests.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
	hits   map[string][]time.Time
	calls  int
}

// NewSlidingWindow creates a limiter allowing limit hits per window per key.
// A nil now func uses time.Now.
func NewSlidingWindow(limit int, window time.Duration, now func() time.Time) *SlidingWindow {
	if now == nil {
		now = time.Now
	}
	return &SlidingWindow{
		limit:  limit,
		window: window,
		now:    now,
		hits:   make(map[string][]time.Time),
	}
}

// Allow records a hit for key if the window has room. When the limit is
// exceeded it returns false and the seconds (rounded up) until the oldest
// hit leaves the window.
func (s *SlidingWindow) Allow(key string) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-s.window)

	// Evict keys whose last hit left the window, so the map stays bounded
	// by recently active clients rather than growing for the process
	// lifetime.
	s.calls++
	if s.calls%sweepEvery == 0 {
		for k, ts := range s.hits {
			if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
				delete(s.hits, k)
			}
		}
	}

	recent := s.hits[key][:0]
	for _, t := range s.hits[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= s.limit {
		s.hits[key] = recent
		retry := recent[0].Add(s.window).Sub(now)
		return false, int(math.Ceil(retry.Seconds()))
	}

	s.hits[key] = append(recent, now)
	return true, 0
}

// ClientKey derives the rate-limit key for a request: the first forwarded
// IP, else the real-IP header, else a truncated user agent.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := xff
		if i := strings.Index(xff, ","); i >= 0 {
			first = xff[:i]
		}
		if first = strings.TrimSpace(first); first != "" {
			return "ip:" + first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return "ip:" + realIP
	}
	ua := r.UserAgent()
	if len(ua) > 32 {
		cut := 32
		// Back up to a rune boundary so the key stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(ua[cut]) {
			cut--
		}
		ua = ua[:cut]
	}
	if ua == "" {
		return "ua:anonymous"
	}
	return "ua:" + ua
}

// RateLimit returns a wrapper that rejects requests over the limiter's
// budget with 429 and a Retry-After hint.
func RateLimit(limiter *SlidingWindow) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ok, retryAfter := limiter.Allow(ClientKey(r))
			if !ok {
				helpers.WriteRateLimited(w, "too many requests", retryAfter)
				return
			}
			next(w, r)
		}
	}
}

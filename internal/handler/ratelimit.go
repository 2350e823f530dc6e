package handler

import (
	"net"
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/time/rate"

	"github.com/gatherup/admission/internal/model"
)

// limiterStore hands out one token bucket per key (caller id, or client IP
// for unauthenticated probes).
type limiterStore struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newLimiterStore(rps float64, burst int) *limiterStore {
	return &limiterStore{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	lim, ok := s.limiters[key]
	if !ok {
		lim = rate.NewLimiter(s.rps, s.burst)
		s.limiters[key] = lim
	}
	return lim
}

// RateLimit throttles mutating endpoints per caller. Capacity-race retries
// are expected and cheap, but an unthrottled retry loop against a full
// event is not.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	store := newLimiterStore(rps, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := CallerID(r.Context())
			if key == "" {
				key = clientIP(r)
			}
			if !store.get(key).Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(1))
				writeJSON(w, http.StatusTooManyRequests, model.ErrorResponse{
					Error: "rate limit exceeded",
					Code:  "RATE_LIMITED",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

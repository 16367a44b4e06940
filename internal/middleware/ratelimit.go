package middleware

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// defaultTrackedClients bounds how many per-client limiters are kept.
const defaultTrackedClients = 10000

// RateLimitConfig configures RateLimiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// MaxClients bounds the tracked clients; the least recently seen client
	// is forgotten first. Zero means defaultTrackedClients.
	MaxClients int
}

// RateLimiter enforces a token bucket per client IP and answers 429 with
// Retry-After once a client's burst is spent.
func RateLimiter(cfg RateLimitConfig) (func(http.Handler) http.Handler, error) {
	if cfg.RequestsPerSecond <= 0 || cfg.Burst <= 0 {
		return nil, fmt.Errorf("rate limit needs positive rps and burst, got %v/%d", cfg.RequestsPerSecond, cfg.Burst)
	}
	size := cfg.MaxClients
	if size <= 0 {
		size = defaultTrackedClients
	}
	clients, err := lru.New[string, *rate.Limiter](size)
	if err != nil {
		return nil, err
	}
	var mu sync.Mutex
	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := clients.Get(ip); ok {
			return l
		}
		l := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
		clients.Add(ip, l)
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := limiterFor(clientIP(r))
			res := limiter.Reserve()
			if delay := res.Delay(); !res.OK() || delay > 0 {
				res.Cancel()
				w.Header().Set("Retry-After", strconv.Itoa(int(delay.Seconds())+1))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"code":    http.StatusTooManyRequests,
					"message": "rate limit exceeded",
				})
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
			next.ServeHTTP(w, r)
		})
	}, nil
}

// clientIP uses RemoteAddr only; forwarding headers are client-controlled.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

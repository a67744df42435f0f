package server

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/sigil-protocol/sigil-scan/internal/config"
)

// clientLimiter holds one token-bucket limiter per client address.
type clientLimiter struct {
	config   *config.RateLimitConfig
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

func newClientLimiter(cfg *config.RateLimitConfig) *clientLimiter {
	return &clientLimiter{
		config:   cfg,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow checks whether a request from the given client is allowed.
func (l *clientLimiter) Allow(clientIP string) bool {
	return l.get(clientIP).Allow()
}

// get returns the limiter for a client, creating it on first sight.
func (l *clientLimiter) get(clientIP string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[clientIP]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[clientIP]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Limit(float64(l.config.RequestsPerMin)/60.0), l.config.Burst)
	l.limiters[clientIP] = limiter
	return limiter
}

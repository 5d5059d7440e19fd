// SPDX-License-Identifier: MIT

// Package ratelimit throttles outbound calls to MediaCMS instances.
package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var rateLimitExceeded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "mediablock",
		Name:      "ratelimit_exceeded_total",
		Help:      "Total outbound requests rejected by the rate limiter",
	},
	[]string{"limit_type"},
)

// Config holds rate limiting configuration.
type Config struct {
	// Global limits across all MediaCMS origins.
	GlobalRate  rate.Limit
	GlobalBurst int

	// Per-origin limits (scheme://host).
	PerOriginRate  rate.Limit
	PerOriginBurst int

	// Idle origin limiters are dropped after this long.
	IdleTTL time.Duration
}

// DefaultConfig returns the defaults used by the daemon.
func DefaultConfig() Config {
	return Config{
		GlobalRate:     100,
		GlobalBurst:    200,
		PerOriginRate:  20,
		PerOriginBurst: 40,
		IdleTTL:        10 * time.Minute,
	}
}

type originLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter applies a global and a per-origin token bucket.
// A zero rate disables the corresponding bucket.
type Limiter struct {
	config Config

	global *rate.Limiter

	mu          sync.Mutex
	perOrigin   map[string]*originLimiter
	lastCleanup time.Time
}

// New creates a new rate limiter with the given config.
func New(config Config) *Limiter {
	l := &Limiter{
		config:      config,
		perOrigin:   make(map[string]*originLimiter),
		lastCleanup: time.Now(),
	}
	if config.GlobalRate > 0 {
		l.global = rate.NewLimiter(config.GlobalRate, config.GlobalBurst)
	}
	return l
}

// Allow reports whether a request to origin may proceed now.
func (l *Limiter) Allow(origin string) bool {
	if l == nil {
		return true
	}
	if l.global != nil && !l.global.Allow() {
		rateLimitExceeded.WithLabelValues("global").Inc()
		return false
	}
	if lim := l.originLimiter(origin); lim != nil && !lim.Allow() {
		rateLimitExceeded.WithLabelValues("per_origin").Inc()
		return false
	}
	return true
}

// Origins returns the number of tracked origin limiters.
func (l *Limiter) Origins() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.perOrigin)
}

func (l *Limiter) originLimiter(origin string) *rate.Limiter {
	if l.config.PerOriginRate <= 0 {
		return nil
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.cleanupLocked(now)

	ol, ok := l.perOrigin[origin]
	if !ok {
		ol = &originLimiter{limiter: rate.NewLimiter(l.config.PerOriginRate, l.config.PerOriginBurst)}
		l.perOrigin[origin] = ol
	}
	ol.lastSeen = now
	return ol.limiter
}

func (l *Limiter) cleanupLocked(now time.Time) {
	if l.config.IdleTTL <= 0 || now.Sub(l.lastCleanup) < l.config.IdleTTL {
		return
	}
	for k, ol := range l.perOrigin {
		if now.Sub(ol.lastSeen) >= l.config.IdleTTL {
			delete(l.perOrigin, k)
		}
	}
	l.lastCleanup = now
}

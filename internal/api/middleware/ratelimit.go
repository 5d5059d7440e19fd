// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig bounds requests per client within a sliding window.
type RateLimitConfig struct {
	// Requests per Window; zero turns the limiter off.
	Requests int
	Window   time.Duration
	// TrustProxyHeaders keys clients by X-Real-IP / X-Forwarded-For
	// instead of the socket address. Enable only behind a trusted proxy.
	TrustProxyHeaders bool
}

// RateLimit applies the configured per-client limit with httprate.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	key := httprate.KeyByIP
	if cfg.TrustProxyHeaders {
		key = httprate.KeyByRealIP
	}
	retryAfter := strconv.Itoa(int(window.Seconds()))

	return httprate.Limit(cfg.Requests, window,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", retryAfter)
			rejectJSON(w, http.StatusTooManyRequests, map[string]any{"error": "rate_limit_exceeded"})
		}),
	)
}

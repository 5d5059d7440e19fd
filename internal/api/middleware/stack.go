// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/mediablock/internal/log"
)

// StackConfig selects the ingress middleware of the block server.
type StackConfig struct {
	Security  SecurityConfig
	RateLimit RateLimitConfig
	// TracingService names the otelhttp handler; empty disables tracing.
	TracingService string
	EnableMetrics  bool
	EnableLogging  bool
}

// Stack returns the ingress chain in order, outermost first. Recovery and
// request ids wrap everything so even rejected requests are correlated.
func Stack(cfg StackConfig) []func(http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		Recoverer,
		RequestID,
		SecurityHeaders(cfg.Security),
	}
	if cfg.EnableMetrics {
		chain = append(chain, Metrics())
	}
	if cfg.TracingService != "" {
		chain = append(chain, OTelHTTP(cfg.TracingService))
	}
	if cfg.EnableLogging {
		chain = append(chain, log.Middleware())
	}
	return append(chain, RateLimit(cfg.RateLimit))
}

// ApplyStack installs Stack(cfg) on r.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Stack(cfg)...)
}

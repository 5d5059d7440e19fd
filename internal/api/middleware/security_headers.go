// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"
)

// SecurityConfig shapes the Content-Security-Policy of block pages.
type SecurityConfig struct {
	// FrameAncestors lists who may embed block pages, e.g. "'self' https://lms.example.org".
	FrameAncestors string
	// ScriptOrigins are extra origins allowed to serve scripts and styles
	// (the video player CDN, jQuery).
	ScriptOrigins []string
}

type nonceKey struct{}

// Nonce returns the CSP nonce generated for the request.
func Nonce(ctx context.Context) string {
	n, _ := ctx.Value(nonceKey{}).(string)
	return n
}

func newNonce() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.StdEncoding.EncodeToString(b[:])
}

// BuildCSP renders the policy for one nonce. Media and connect sources are
// open because MediaCMS instances are configured per block.
func BuildCSP(cfg SecurityConfig, nonce string) string {
	origins := strings.Join(cfg.ScriptOrigins, " ")
	frame := cfg.FrameAncestors
	if frame == "" {
		frame = "'self'"
	}
	directives := []string{
		"default-src 'self'",
		"script-src 'self' 'nonce-" + nonce + "' " + origins,
		"style-src 'self' 'unsafe-inline' " + origins,
		"font-src 'self' data: " + origins,
		"img-src 'self' data: blob: http: https:",
		"media-src 'self' blob: http: https:",
		"connect-src 'self' blob: http: https:",
		"worker-src 'self' blob:",
		"object-src 'none'",
		"base-uri 'self'",
		"frame-ancestors " + frame,
	}
	for i, d := range directives {
		directives[i] = strings.TrimSpace(d)
	}
	return strings.Join(directives, "; ")
}

// SecurityHeaders returns a middleware that adds common security headers
// to all responses and a per-request nonce for inline page scripts.
func SecurityHeaders(cfg SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nonce := newNonce()
			h := w.Header()

			if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
				h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
			}
			h.Set("Content-Security-Policy", BuildCSP(cfg, nonce))
			h.Set("X-Content-Type-Options", "nosniff")
			if strings.TrimSpace(cfg.FrameAncestors) == "'none'" {
				h.Set("X-Frame-Options", "DENY")
			}
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), nonceKey{}, nonce)))
		})
	}
}

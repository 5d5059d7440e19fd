// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/mediablock/internal/log"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders_NoncePerRequest(t *testing.T) {
	var nonces []string
	h := SecurityHeaders(SecurityConfig{
		ScriptOrigins: []string{"https://vjs.zencdn.net"},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nonces = append(nonces, Nonce(r.Context()))
	}))

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		csp := w.Header().Get("Content-Security-Policy")
		assert.Contains(t, csp, "'nonce-"+nonces[i]+"'")
		assert.Contains(t, csp, "https://vjs.zencdn.net")
		assert.Contains(t, csp, "frame-ancestors 'self'")
		assert.Empty(t, w.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
	}
	require.Len(t, nonces, 2)
	assert.NotEmpty(t, nonces[0])
	assert.NotEqual(t, nonces[0], nonces[1])
}

func TestSecurityHeaders_FrameDenyAndHSTS(t *testing.T) {
	h := SecurityHeaders(SecurityConfig{FrameAncestors: "'none'"})(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = log.RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(HeaderRequestID))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, "abc-123")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "abc-123", seen)
}

func TestRecoverer(t *testing.T) {
	h := RequestID(Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body["error"])
	assert.Equal(t, w.Header().Get(HeaderRequestID), body["requestId"])
}

func TestCSRFProtection(t *testing.T) {
	h := CSRFProtection([]string{"https://lms.example.org/"})(okHandler())

	tests := []struct {
		name    string
		method  string
		origin  string
		referer string
		want    int
	}{
		{"get passes", http.MethodGet, "https://evil.example", "", http.StatusOK},
		{"no origin passes", http.MethodPost, "", "", http.StatusOK},
		{"same origin", http.MethodPost, "http://example.com", "", http.StatusOK},
		{"allowed origin", http.MethodPost, "https://lms.example.org", "", http.StatusOK},
		{"cross origin", http.MethodPost, "https://evil.example", "", http.StatusForbidden},
		{"cross referer", http.MethodPost, "", "https://evil.example/page", http.StatusForbidden},
		{"same referer", http.MethodPost, "", "http://example.com/blocks/b1/student_view", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "http://example.com/blocks/b1/handler/report_progress", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if tt.referer != "" {
				r.Header.Set("Referer", tt.referer)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusForbidden {
				assert.JSONEq(t, `{"error":"cross-origin request rejected"}`, w.Body.String())
			}
		})
	}
}

func TestRateLimit_EnforcesLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{Requests: 3, Window: time.Minute})(okHandler())

	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.1:12345"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate_limit_exceeded"}`, w.Body.String())

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.2:12345"
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	h := RateLimit(RateLimitConfig{})(okHandler())
	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimit_ProxyHeaders(t *testing.T) {
	h := RateLimit(RateLimitConfig{Requests: 1, Window: time.Minute, TrustProxyHeaders: true})(okHandler())

	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "127.0.0.1:1000"
		r.Header.Set("X-Real-IP", ip)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code, ip)
	}
}

func TestBlockOperation(t *testing.T) {
	assert.Equal(t, "student_view", blockOperation("/blocks/b1/student_view"))
	assert.Equal(t, "handler/report_progress", blockOperation("/blocks/b1/handler/report_progress"))
	assert.Equal(t, "block", blockOperation("/blocks/b1"))
	assert.Equal(t, "/openapi.yaml", blockOperation("/openapi.yaml"))
}

func TestStack_Order(t *testing.T) {
	chain := Stack(StackConfig{EnableMetrics: true, TracingService: "svc", EnableLogging: true})
	assert.Len(t, chain, 7)
	assert.Len(t, Stack(StackConfig{}), 4)
}

func TestApplyStack(t *testing.T) {
	r := chi.NewRouter()
	ApplyStack(r, StackConfig{EnableMetrics: true, EnableLogging: true})
	r.Get("/blocks/{blockID}/x", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/blocks/b1/x", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

// OTelHTTP opens a server span per traced request and extracts incoming
// trace context. Block requests are named by operation, e.g.
// "GET student_view" or "POST handler/report_progress".
func OTelHTTP(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			otelhttp.WithPropagators(otel.GetTextMapPropagator()),
			otelhttp.WithFilter(traced),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + blockOperation(r.URL.Path)
			}),
		)
	}
}

func traced(r *http.Request) bool {
	if isProbePath(r.URL.Path) {
		return false
	}
	return !strings.HasPrefix(r.URL.Path, "/static/")
}

func isProbePath(p string) bool {
	return p == "/healthz" || p == "/readyz" || p == "/metrics"
}

// blockOperation strips the "/blocks/<id>/" prefix so span names stay bounded.
func blockOperation(p string) string {
	rest, ok := strings.CutPrefix(p, "/blocks/")
	if !ok {
		return p
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[i+1:]
	}
	return "block"
}

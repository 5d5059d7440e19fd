// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Route labels come from the chi pattern so block ids never become labels.
var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediablock",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"method", "route", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mediablock",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"method", "route"})

	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mediablock",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "HTTP requests currently being served",
	})

	httpResponseBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mediablock",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response body size by route",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
	}, []string{"route"})
)

// Metrics records request count, latency and response size per route.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			started := time.Now()
			cw := &countingWriter{ResponseWriter: w}
			next.ServeHTTP(cw, r)

			route := routeLabel(r)
			httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(cw.statusOrOK())).Inc()
			httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(started).Seconds())
			if cw.n > 0 {
				httpResponseBytes.WithLabelValues(route).Observe(float64(cw.n))
			}
		})
	}
}

func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

type countingWriter struct {
	http.ResponseWriter
	status int
	n      int
}

func (c *countingWriter) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *countingWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	n, err := c.ResponseWriter.Write(b)
	c.n += n
	return n, err
}

func (c *countingWriter) statusOrOK() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (c *countingWriter) Unwrap() http.ResponseWriter { return c.ResponseWriter }

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Breaker states as exported by mediablock_mediacms_breaker_state.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

// One series per MediaCMS origin that blocks point at.
var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mediablock_mediacms_breaker_state",
		Help: "Circuit breaker state per MediaCMS origin (0 closed, 1 half-open, 2 open)",
	}, []string{"origin"})

	breakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediablock_mediacms_breaker_trips_total",
		Help: "Times the breaker of a MediaCMS origin opened",
	}, []string{"origin"})
)

// SetBreakerState records a breaker transition for origin.
func SetBreakerState(origin string, state int) {
	breakerState.WithLabelValues(origin).Set(float64(state))
	if state == BreakerOpen {
		breakerTrips.WithLabelValues(origin).Inc()
	}
}

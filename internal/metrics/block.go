// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics holds the Prometheus collectors of the video block service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	renderTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediablock_render_total",
		Help: "Student view renders by selected source kind",
	}, []string{"source"}) // source=hls|progressive|fallback|unconfigured

	progressReportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediablock_progress_reports_total",
		Help: "Progress reports by outcome",
	}, []string{"outcome"}) // outcome=raised|unchanged|invalid

	progressResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediablock_progress_resets_total",
		Help: "Per-student progress resets caused by a media URL change",
	})

	gradeEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediablock_grade_events_total",
		Help: "Grade events published by backend and outcome",
	}, []string{"backend", "outcome"}) // outcome=success|failure

	resolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediablock_mediacms_resolve_total",
		Help: "MediaCMS resolution attempts by outcome",
	}, []string{"outcome"}) // outcome=success|no_token|error|cache_hit

	resolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mediablock_mediacms_request_duration_seconds",
		Help:    "Latency of MediaCMS API requests",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	editsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediablock_studio_edits_total",
		Help: "Accepted studio edit submissions",
	})
)

// RecordRender counts a student view render by selected source kind.
func RecordRender(source string) {
	renderTotal.WithLabelValues(source).Inc()
}

// RecordProgressReport counts a progress report by outcome.
func RecordProgressReport(outcome string) {
	progressReportsTotal.WithLabelValues(outcome).Inc()
}

// RecordProgressReset counts a URL-change progress reset.
func RecordProgressReset() {
	progressResetsTotal.Inc()
}

// RecordGradeEvent counts a grade publication attempt.
func RecordGradeEvent(backend string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	gradeEventsTotal.WithLabelValues(backend, outcome).Inc()
}

// RecordResolve counts a resolution attempt by outcome.
func RecordResolve(outcome string) {
	resolveTotal.WithLabelValues(outcome).Inc()
}

// ObserveMediaCMSRequest records the latency of one MediaCMS API call.
func ObserveMediaCMSRequest(d time.Duration) {
	resolveDuration.Observe(d.Seconds())
}

// RecordEdit counts an accepted studio edit.
func RecordEdit() {
	editsTotal.Inc()
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package grade delivers completion grades to the learning platform.
package grade

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/mediablock/internal/log"
	"github.com/ManuGH/mediablock/internal/metrics"
)

// EventType is the event name the platform expects for scores.
const EventType = "grade"

// Event is a full-credit completion grade for one student in one block.
type Event struct {
	Type      string    `json:"event_type"`
	BlockID   string    `json:"block_id"`
	UserID    string    `json:"user_id"`
	Value     float64   `json:"value"`
	MaxValue  float64   `json:"max_value"`
	Timestamp time.Time `json:"timestamp"`
}

// FullCredit builds the grade event emitted when a student completes a block.
func FullCredit(blockID, userID string, now time.Time) Event {
	return Event{
		Type:      EventType,
		BlockID:   blockID,
		UserID:    userID,
		Value:     1.0,
		MaxValue:  1.0,
		Timestamp: now.UTC(),
	}
}

// Publisher delivers grade events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Name() string
}

// Instrumented wraps a publisher with metrics and structured logging.
type Instrumented struct {
	next Publisher
}

// Instrument wraps next.
func Instrument(next Publisher) *Instrumented {
	return &Instrumented{next: next}
}

func (p *Instrumented) Name() string { return p.next.Name() }

func (p *Instrumented) Publish(ctx context.Context, ev Event) error {
	err := p.next.Publish(ctx, ev)
	metrics.RecordGradeEvent(p.next.Name(), err)

	logger := log.WithComponentFromContext(ctx, "grade")
	if err != nil {
		logger.Warn().Err(err).
			Str(log.FieldEvent, "grade.publish_failed").
			Str("backend", p.next.Name()).
			Msg("grade event not delivered")
		return fmt.Errorf("publish grade via %s: %w", p.next.Name(), err)
	}
	logger.Info().
		Str(log.FieldEvent, "grade.published").
		Str("backend", p.next.Name()).
		Float64("value", ev.Value).
		Float64("max_value", ev.MaxValue).
		Msg("grade event published")
	return nil
}

// HealthCheck pings the backend when it supports it.
func (p *Instrumented) HealthCheck(ctx context.Context) error {
	if hc, ok := p.next.(interface{ HealthCheck(context.Context) error }); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// Close releases backend resources.
func (p *Instrumented) Close() error {
	if c, ok := p.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

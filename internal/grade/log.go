// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package grade

import (
	"context"

	"github.com/ManuGH/mediablock/internal/log"
)

// LogPublisher writes grade events to the structured log only.
type LogPublisher struct{}

func (LogPublisher) Name() string { return "log" }

func (LogPublisher) Publish(ctx context.Context, ev Event) error {
	logger := log.WithComponentFromContext(ctx, "grade")
	logger.Info().
		Str(log.FieldBlockID, ev.BlockID).
		Str(log.FieldUserID, ev.UserID).
		Str("event_type", ev.Type).
		Float64("value", ev.Value).
		Float64("max_value", ev.MaxValue).
		Msg("grade")
	return nil
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package block

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ManuGH/mediablock/internal/grade"
	"github.com/ManuGH/mediablock/internal/log"
	"github.com/ManuGH/mediablock/internal/metrics"
	"github.com/ManuGH/mediablock/internal/store"
)

// ErrInvalidProgress is returned when a progress report is not integer-like.
var ErrInvalidProgress = errors.New("block: progress is not an integer")

// EditRequest is the Studio form submission. Fields are kept raw so that any
// JSON type is accepted.
type EditRequest struct {
	DisplayName          json.RawMessage `json:"display_name"`
	MediaURL             json.RawMessage `json:"mediacms_url"`
	CompletionPercentage json.RawMessage `json:"completion_percentage"`
}

// ProgressRequest is a progress report from the player.
type ProgressRequest struct {
	Progress      json.RawMessage `json:"progress"`
	WatchedRanges json.RawMessage `json:"watched_ranges"`
}

// SubmitEdit stores the editor values. Name and URL are stored verbatim;
// a missing, empty, zero or unparsable percentage becomes the default.
func (b *Block) SubmitEdit(ctx context.Context, sc *store.Scope, req EditRequest) {
	sc.Settings.DisplayName = rawText(req.DisplayName)
	sc.Settings.MediaURL = rawText(req.MediaURL)
	sc.Settings.CompletionPercentage = parsePercentage(req.CompletionPercentage, b.opts.DefaultCompletionPercentage)

	metrics.RecordEdit()
	logger := log.WithComponentFromContext(ctx, "block")
	logger.Info().
		Str(log.FieldEvent, "edit.saved").
		Str(log.FieldMediaURL, sc.Settings.MediaURL).
		Int(log.FieldThreshold, sc.Settings.CompletionPercentage).
		Msg("block settings updated")
}

// ReportProgress raises the student's high-water mark and publishes a
// full-credit grade whenever it meets the threshold. Watched ranges are
// replaced when the report carries them.
func (b *Block) ReportProgress(ctx context.Context, sc *store.Scope, req ProgressRequest) (int, error) {
	logger := log.WithComponentFromContext(ctx, "block")

	reported, ok := parseProgress(req.Progress)
	if !ok {
		metrics.RecordProgressReport("invalid")
		logger.Debug().
			Str(log.FieldEvent, "progress.invalid").
			RawJSON("raw", safeRaw(req.Progress)).
			Msg("progress report rejected")
		return sc.State.Progress, ErrInvalidProgress
	}

	if reported > sc.State.Progress {
		sc.State.Progress = reported
		metrics.RecordProgressReport("raised")
	} else {
		metrics.RecordProgressReport("unchanged")
	}

	if sc.State.Progress >= sc.Settings.CompletionPercentage && b.grades != nil {
		ev := grade.FullCredit(sc.BlockID, sc.UserID, b.opts.Now())
		// Delivery failures do not fail the report.
		_ = b.grades.Publish(ctx, ev)
	}

	if len(req.WatchedRanges) > 0 && string(req.WatchedRanges) != "null" {
		sc.State.WatchedRanges = append([]byte(nil), req.WatchedRanges...)
	}

	logger.Debug().
		Str(log.FieldEvent, "progress.reported").
		Int("reported", reported).
		Int(log.FieldProgress, sc.State.Progress).
		Int(log.FieldThreshold, sc.Settings.CompletionPercentage).
		Msg("progress recorded")
	return sc.State.Progress, nil
}

// PublishCompletion acknowledges a completion notice from the platform.
// It changes nothing.
func (b *Block) PublishCompletion(ctx context.Context, _ *store.Scope, payload json.RawMessage) {
	logger := log.WithComponentFromContext(ctx, "block")
	logger.Debug().
		Str(log.FieldEvent, "completion.acknowledged").
		Int("payload_bytes", len(payload)).
		Msg("completion notice received")
}

func rangesOrEmpty(r json.RawMessage) json.RawMessage {
	if len(r) == 0 {
		return store.EmptyRanges
	}
	return r
}

func safeRaw(r json.RawMessage) []byte {
	if len(r) == 0 || !json.Valid(r) {
		return []byte("null")
	}
	return r
}

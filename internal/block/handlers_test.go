// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package block

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/mediablock/internal/grade"
)

func TestSubmitEdit(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantPct int
	}{
		{"number", `{"completion_percentage": 75}`, 75},
		{"fractional number", `{"completion_percentage": 80.9}`, 80},
		{"numeric string", `{"completion_percentage": "60"}`, 60},
		{"padded string", `{"completion_percentage": " 55 "}`, 55},
		{"string zero", `{"completion_percentage": "0"}`, 0},
		{"absent", `{}`, 90},
		{"null", `{"completion_percentage": null}`, 90},
		{"empty string", `{"completion_percentage": ""}`, 90},
		{"zero", `{"completion_percentage": 0}`, 90},
		{"false", `{"completion_percentage": false}`, 90},
		{"true", `{"completion_percentage": true}`, 1},
		{"garbage", `{"completion_percentage": "abc"}`, 90},
		{"list", `{"completion_percentage": [50]}`, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBlock(nil, nil)
			sc := newScope(t, newStore())

			var req EditRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			b.SubmitEdit(context.Background(), sc, req)
			assert.Equal(t, tt.wantPct, sc.Settings.CompletionPercentage)
		})
	}
}

func TestSubmitEdit_StoresVerbatim(t *testing.T) {
	b := newTestBlock(nil, nil)
	sc := newScope(t, newStore())

	var req EditRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"display_name": "  Week 3 ",
		"mediacms_url": "not a url",
		"completion_percentage": "85"
	}`), &req))
	b.SubmitEdit(context.Background(), sc, req)

	assert.Equal(t, "  Week 3 ", sc.Settings.DisplayName)
	assert.Equal(t, "not a url", sc.Settings.MediaURL)
	assert.Equal(t, 85, sc.Settings.CompletionPercentage)
}

func TestSubmitEdit_SameURLKeepsProgress(t *testing.T) {
	b := newTestBlock(&stubResolver{}, nil)
	sc := newScope(t, newStore())
	sc.State.LastWatchedURL = sc.Settings.MediaURL
	sc.State.Progress = 40

	var req EditRequest
	require.NoError(t, json.Unmarshal([]byte(`{"mediacms_url": "https://deic.mediacms.io/view?m=6ui2LMmEs"}`), &req))
	b.SubmitEdit(context.Background(), sc, req)

	out, err := b.StudentView(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, 40, out.View.Progress)
}

func progressReq(t *testing.T, body string) ProgressRequest {
	t.Helper()
	var req ProgressRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return req
}

func TestReportProgress_Ratchet(t *testing.T) {
	pub := &recordingPublisher{}
	b := newTestBlock(nil, pub)
	sc := newScope(t, newStore())
	ctx := context.Background()

	n, err := b.ReportProgress(ctx, sc, progressReq(t, `{"progress": 40}`))
	require.NoError(t, err)
	assert.Equal(t, 40, n)

	n, err = b.ReportProgress(ctx, sc, progressReq(t, `{"progress": 20}`))
	require.NoError(t, err)
	assert.Equal(t, 40, n)

	n, err = b.ReportProgress(ctx, sc, progressReq(t, `{"progress": "55"}`))
	require.NoError(t, err)
	assert.Equal(t, 55, n)

	n, err = b.ReportProgress(ctx, sc, progressReq(t, `{"progress": 60.7}`))
	require.NoError(t, err)
	assert.Equal(t, 60, n)

	assert.Zero(t, pub.count())
}

func TestReportProgress_AbsentMeansZero(t *testing.T) {
	b := newTestBlock(nil, nil)
	sc := newScope(t, newStore())

	n, err := b.ReportProgress(context.Background(), sc, progressReq(t, `{}`))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReportProgress_InvalidLeavesState(t *testing.T) {
	for _, body := range []string{
		`{"progress": "abc", "watched_ranges": [[0,5]]}`,
		`{"progress": null, "watched_ranges": [[0,5]]}`,
		`{"progress": true, "watched_ranges": [[0,5]]}`,
		`{"progress": {"x": 1}, "watched_ranges": [[0,5]]}`,
	} {
		t.Run(body, func(t *testing.T) {
			pub := &recordingPublisher{}
			b := newTestBlock(nil, pub)
			sc := newScope(t, newStore())
			sc.State.Progress = 95
			require.NoError(t, sc.Commit(context.Background()))

			n, err := b.ReportProgress(context.Background(), sc, progressReq(t, body))
			require.ErrorIs(t, err, ErrInvalidProgress)
			assert.Equal(t, 95, n)
			assert.JSONEq(t, `[]`, string(sc.State.WatchedRanges))
			assert.Zero(t, pub.count())

			_, stateDirty := sc.Dirty()
			assert.False(t, stateDirty)
		})
	}
}

func TestReportProgress_GradeOnEveryCallAtThreshold(t *testing.T) {
	pub := &recordingPublisher{}
	b := newTestBlock(nil, pub)
	sc := newScope(t, newStore())
	ctx := context.Background()

	_, err := b.ReportProgress(ctx, sc, progressReq(t, `{"progress": 89}`))
	require.NoError(t, err)
	assert.Zero(t, pub.count())

	_, err = b.ReportProgress(ctx, sc, progressReq(t, `{"progress": 90}`))
	require.NoError(t, err)
	_, err = b.ReportProgress(ctx, sc, progressReq(t, `{"progress": 10}`))
	require.NoError(t, err)

	require.Equal(t, 2, pub.count())
	assert.Equal(t, grade.Event{
		Type:      "grade",
		BlockID:   "block-1",
		UserID:    "student-1",
		Value:     1.0,
		MaxValue:  1.0,
		Timestamp: fixedNow,
	}, pub.events[0])
}

func TestReportProgress_PublishErrorIgnored(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("lms down")}
	b := newTestBlock(nil, pub)
	sc := newScope(t, newStore())

	n, err := b.ReportProgress(context.Background(), sc, progressReq(t, `{"progress": 100}`))
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, 1, pub.count())
}

func TestReportProgress_ZeroThresholdCompletesImmediately(t *testing.T) {
	pub := &recordingPublisher{}
	b := newTestBlock(nil, pub)
	sc := newScope(t, newStore())
	sc.Settings.CompletionPercentage = 0

	_, err := b.ReportProgress(context.Background(), sc, progressReq(t, `{"progress": 0}`))
	require.NoError(t, err)
	assert.Equal(t, 1, pub.count())
}

func TestReportProgress_WatchedRanges(t *testing.T) {
	b := newTestBlock(nil, nil)
	sc := newScope(t, newStore())
	ctx := context.Background()

	_, err := b.ReportProgress(ctx, sc, progressReq(t, `{"progress": 10, "watched_ranges": [{"start":0,"end":12.5}]}`))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"start":0,"end":12.5}]`, string(sc.State.WatchedRanges))

	_, err = b.ReportProgress(ctx, sc, progressReq(t, `{"progress": 11, "watched_ranges": null}`))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"start":0,"end":12.5}]`, string(sc.State.WatchedRanges))

	_, err = b.ReportProgress(ctx, sc, progressReq(t, `{"progress": 5, "watched_ranges": [[0,3]]}`))
	require.NoError(t, err)
	assert.JSONEq(t, `[[0,3]]`, string(sc.State.WatchedRanges))
	assert.Equal(t, 11, sc.State.Progress)
}

func TestPublishCompletion_NoStateChange(t *testing.T) {
	b := newTestBlock(nil, nil)
	sc := newScope(t, newStore())

	b.PublishCompletion(context.Background(), sc, json.RawMessage(`{"completion": 1.0}`))

	settingsDirty, stateDirty := sc.Dirty()
	assert.False(t, settingsDirty)
	assert.False(t, stateDirty)
}

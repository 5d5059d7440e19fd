// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package block

import (
	"bytes"
	"context"
	"html/template"

	"github.com/ManuGH/mediablock/internal/fragment"
	"github.com/ManuGH/mediablock/internal/log"
	"github.com/ManuGH/mediablock/internal/mediacms"
	"github.com/ManuGH/mediablock/internal/metrics"
	"github.com/ManuGH/mediablock/internal/store"
	"github.com/ManuGH/mediablock/internal/telemetry"
)

const completedClass = "mediacms-completed"

// View is the data the student template is rendered from.
type View struct {
	DisplayName          string
	VideoSrc             string
	MimeType             string
	SourceKind           mediacms.SourceKind
	Progress             int
	CompletionPercentage int
	IsCompleted          bool
	CompletedClass       string
	ProgressLabel        string
	Configured           bool
}

// Rendered is the result of a student view.
type Rendered struct {
	View     View
	Fragment *fragment.Fragment
}

// StudentView renders the player for the scope's student.
//
// When the stored media URL differs from the one the student's progress was
// recorded against, progress and watched ranges are reset first. Resolution
// failures are logged and the configured URL is played directly.
func (b *Block) StudentView(ctx context.Context, sc *store.Scope) (*Rendered, error) {
	logger := log.WithComponentFromContext(ctx, "block")
	settings := sc.Settings

	switch {
	case sc.State.LastWatchedURL == "":
		sc.State.LastWatchedURL = settings.MediaURL
	case settings.MediaURL != sc.State.LastWatchedURL:
		logger.Info().
			Str(log.FieldEvent, "render.progress_reset").
			Str("previous_url", sc.State.LastWatchedURL).
			Str(log.FieldMediaURL, settings.MediaURL).
			Int(log.FieldProgress, sc.State.Progress).
			Msg("media URL changed, resetting student progress")
		metrics.RecordProgressReset()
		sc.State.Progress = 0
		sc.State.WatchedRanges = append([]byte(nil), store.EmptyRanges...)
		sc.State.LastWatchedURL = settings.MediaURL
	}

	videoSrc := settings.MediaURL
	if videoSrc == "" {
		videoSrc = b.opts.DefaultMediaURL
	}
	if videoSrc == "" {
		metrics.RecordRender("unconfigured")
		return &Rendered{
			View:     View{DisplayName: settings.DisplayName},
			Fragment: fragment.New(template.HTML("<div>" + template.HTMLEscapeString(ConfigurePrompt) + "</div>")), // #nosec G203 -- escaped constant
		}, nil
	}

	var info *mediacms.MediaInfo
	if b.resolver != nil {
		resolved, err := b.resolver.Resolve(ctx, videoSrc)
		if err != nil {
			logger.Warn().Err(err).
				Str(log.FieldEvent, "render.resolve_failed").
				Str(log.FieldMediaURL, videoSrc).
				Str("kind", mediacms.Kind(err)).
				Msg("MediaCMS lookup failed, playing configured URL")
		} else {
			info = resolved
		}
	}
	src := mediacms.SelectSource(info, videoSrc)
	metrics.RecordRender(string(src.Kind))
	telemetry.Annotate(ctx, telemetry.SourceAttribute(string(src.Kind)))

	completed := sc.State.Progress >= settings.CompletionPercentage
	view := View{
		DisplayName:          settings.DisplayName,
		VideoSrc:             src.URL,
		MimeType:             src.MimeType,
		SourceKind:           src.Kind,
		Progress:             sc.State.Progress,
		CompletionPercentage: settings.CompletionPercentage,
		IsCompleted:          completed,
		ProgressLabel:        "Progress:",
		Configured:           true,
	}
	if completed {
		view.CompletedClass = completedClass
		view.ProgressLabel = "Done:"
	}

	var body bytes.Buffer
	if err := studentTemplate.Execute(&body, view); err != nil {
		return nil, err
	}

	frag := fragment.New(template.HTML(body.String())) // #nosec G203 -- rendered by html/template
	frag.AddCSSURL(b.opts.PlayerBaseURL + "/video-js.min.css")
	frag.AddJavaScriptURL(b.opts.PlayerBaseURL + "/video.min.js")
	frag.AddCSS(studentCSS)
	frag.AddJavaScript(studentJS)
	frag.InitializeJS("MediaCMSXBlock", map[string]any{
		"completion_percentage": settings.CompletionPercentage,
		"mediacms_url":          settings.MediaURL,
		"last_watched_url":      sc.State.LastWatchedURL,
		"progress":              sc.State.Progress,
		"watched_ranges":        rangesOrEmpty(sc.State.WatchedRanges),
	})

	logger.Debug().
		Str(log.FieldEvent, "render.completed").
		Str(log.FieldSource, string(src.Kind)).
		Str(log.FieldMimeType, src.MimeType).
		Int(log.FieldProgress, view.Progress).
		Int(log.FieldThreshold, view.CompletionPercentage).
		Msg("student view rendered")
	return &Rendered{View: view, Fragment: frag}, nil
}

// StudioView renders the editor form.
func (b *Block) StudioView(_ context.Context, sc *store.Scope) (*fragment.Fragment, error) {
	mediaURL := sc.Settings.MediaURL
	if mediaURL == "" {
		mediaURL = b.opts.DefaultMediaURL
	}

	var body bytes.Buffer
	err := studioTemplate.Execute(&body, struct {
		DisplayName          string
		MediaURL             string
		CompletionPercentage int
	}{sc.Settings.DisplayName, mediaURL, sc.Settings.CompletionPercentage})
	if err != nil {
		return nil, err
	}

	frag := fragment.New(template.HTML(body.String())) // #nosec G203 -- rendered by html/template
	frag.AddJavaScript(studioJS)
	frag.InitializeJS("MediaCMSStudioXBlock", nil)
	return frag, nil
}

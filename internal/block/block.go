// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package block implements the MediaCMS video block: the student player with
// progress tracking, the Studio editor and the JSON handlers behind them.
//
// Every operation works on a store.Scope that the caller acquired for one
// (block, student) pair; the caller commits and releases it.
package block

import (
	"context"
	"time"

	"github.com/ManuGH/mediablock/internal/grade"
	"github.com/ManuGH/mediablock/internal/mediacms"
)

// DefaultPlayerBaseURL hosts the video.js build loaded by the student view.
const DefaultPlayerBaseURL = "https://vjs.zencdn.net/7.20.3"

// ConfigurePrompt is shown instead of a player when no media URL is available.
const ConfigurePrompt = "Please configure the MediaCMS Video URL in Studio."

// Resolver turns a MediaCMS page URL into a media descriptor.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (*mediacms.MediaInfo, error)
}

// Options configures a Block. Zero values select defaults.
type Options struct {
	// DefaultMediaURL replaces an empty stored media URL at render time.
	DefaultMediaURL string
	// DefaultCompletionPercentage is used when an edit carries no usable value.
	DefaultCompletionPercentage int
	// PlayerBaseURL is the directory holding video-js.min.css and video.min.js.
	PlayerBaseURL string
	Now           func() time.Time
}

// Block holds the collaborators shared by all block instances.
type Block struct {
	resolver Resolver
	grades   grade.Publisher
	opts     Options
}

// New creates a Block.
func New(resolver Resolver, grades grade.Publisher, opts Options) *Block {
	if opts.DefaultCompletionPercentage == 0 {
		opts.DefaultCompletionPercentage = 90
	}
	if opts.PlayerBaseURL == "" {
		opts.PlayerBaseURL = DefaultPlayerBaseURL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Block{resolver: resolver, grades: grades, opts: opts}
}

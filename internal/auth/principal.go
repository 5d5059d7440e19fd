// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package auth derives the student identity of a request.
package auth

import "context"

// Anonymous is the user id of requests that carry no identity.
const Anonymous = "anonymous"

// Identity sources.
const (
	SourceJWT       = "jwt"
	SourceHeader    = "header"
	SourceAnonymous = "anonymous"
)

// Principal represents the identity a request acts as.
type Principal struct {
	// ID is the user id block state is keyed by.
	ID string
	// Source tells how ID was established.
	Source string
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by Middleware.
// Requests that did not pass through it act as Anonymous.
func PrincipalFromContext(ctx context.Context) Principal {
	if p, ok := ctx.Value(principalKey{}).(Principal); ok {
		return p
	}
	return Principal{ID: Anonymous, Source: SourceAnonymous}
}

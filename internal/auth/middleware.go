// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ManuGH/mediablock/internal/log"
)

// Query parameters carrying identity on page-originated requests.
const (
	QueryToken  = "token"
	QueryUserID = "user_id"
)

// Config controls identity resolution.
type Config struct {
	// JWTSecret enables bearer-token identity. When set, every request
	// must carry a valid token.
	JWTSecret string
	// UserHeader names the trusted header carrying the user id when no
	// secret is configured.
	UserHeader string
	// UserQueryParam is consulted after UserHeader. Pages pass the id to
	// their handler calls this way.
	UserQueryParam string
	// AllowQueryToken accepts ?token= for page loads that cannot set headers.
	AllowQueryToken bool
}

// Middleware attaches a Principal to every request.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	var verifier *Verifier
	if cfg.JWTSecret != "" {
		verifier = NewVerifier(cfg.JWTSecret)
	}
	header := cfg.UserHeader
	if header == "" {
		header = "X-User-ID"
	}
	param := cfg.UserQueryParam
	if param == "" {
		param = QueryUserID
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var p Principal
			if verifier != nil {
				sub, err := verifier.Subject(ExtractToken(r, cfg.AllowQueryToken))
				if err != nil {
					logger := log.WithComponentFromContext(r.Context(), "auth")
					logger.Warn().Err(err).
						Str(log.FieldEvent, "auth.rejected").
						Str(log.FieldPath, r.URL.Path).
						Msg("request rejected")
					writeUnauthorized(w)
					return
				}
				p = Principal{ID: sub, Source: SourceJWT}
			} else if id := strings.TrimSpace(r.Header.Get(header)); id != "" {
				p = Principal{ID: id, Source: SourceHeader}
			} else if id := strings.TrimSpace(r.URL.Query().Get(param)); id != "" {
				p = Principal{ID: id, Source: SourceHeader}
			} else {
				p = Principal{ID: Anonymous, Source: SourceAnonymous}
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="mediablock"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}

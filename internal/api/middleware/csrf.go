// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/ManuGH/mediablock/internal/log"
)

// CSRFProtection guards block handlers against cross-site form posts.
// A state-changing request that names its origin (Origin, else Referer) must
// come from the serving host or from trusted. Callers that send neither
// header are LMS back ends, not browsers, and are let through.
func CSRFProtection(trusted []string) func(http.Handler) http.Handler {
	allow := make(map[string]struct{}, len(trusted))
	for _, o := range trusted {
		allow[strings.TrimSuffix(o, "/")] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mutates(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			origin := claimedOrigin(r)
			if origin == "" || origin == servingOrigin(r) {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := allow[origin]; ok {
				next.ServeHTTP(w, r)
				return
			}

			logger := log.WithComponentFromContext(r.Context(), "csrf")
			logger.Warn().
				Str(log.FieldEvent, "csrf.rejected").
				Str("origin", origin).
				Str(log.FieldPath, r.URL.Path).
				Msg("cross-origin request rejected")
			rejectJSON(w, http.StatusForbidden, map[string]any{"error": "cross-origin request rejected"})
		})
	}
}

func mutates(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// claimedOrigin is scheme://host of Origin, or of Referer when Origin is absent.
func claimedOrigin(r *http.Request) string {
	if o := r.Header.Get("Origin"); o != "" {
		return strings.TrimSuffix(o, "/")
	}
	ref, err := url.Parse(r.Header.Get("Referer"))
	if err != nil || ref.Host == "" {
		return ""
	}
	return ref.Scheme + "://" + ref.Host
}

// servingOrigin is the origin the request was addressed to.
func servingOrigin(r *http.Request) string {
	if r.Host == "" {
		return ""
	}
	scheme := "http"
	switch {
	case r.Header.Get("X-Forwarded-Proto") != "":
		scheme = r.Header.Get("X-Forwarded-Proto")
	case r.TLS != nil:
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

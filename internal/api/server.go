// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes block views and handlers over HTTP.
package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/mediablock/internal/api/middleware"
	"github.com/ManuGH/mediablock/internal/api/openapi"
	"github.com/ManuGH/mediablock/internal/auth"
	"github.com/ManuGH/mediablock/internal/block"
	"github.com/ManuGH/mediablock/internal/config"
	"github.com/ManuGH/mediablock/internal/fragment"
	"github.com/ManuGH/mediablock/internal/health"
	"github.com/ManuGH/mediablock/internal/store"
)

const maxBodyBytes = 1 << 20

// Deps are the collaborators a Server routes requests to.
type Deps struct {
	Block  *block.Block
	Store  *store.Store
	Health *health.Manager
}

// Server is the HTTP front of the block service.
type Server struct {
	cfg    config.AppConfig
	block  *block.Block
	store  *store.Store
	health *health.Manager
	router chi.Router
}

// New builds a Server and its routes.
func New(cfg config.AppConfig, deps Deps) *Server {
	s := &Server{
		cfg:    cfg,
		block:  deps.Block,
		store:  deps.Store,
		health: deps.Health,
	}
	if s.health == nil {
		s.health = health.NewManager(cfg.Version)
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer wraps Handler with the configured listener settings.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           s.router,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

func (s *Server) stackConfig() middleware.StackConfig {
	tracing := ""
	if s.cfg.Telemetry.Enabled {
		tracing = s.cfg.LogService
	}
	return middleware.StackConfig{
		Security: middleware.SecurityConfig{
			FrameAncestors: s.cfg.Server.FrameAncestors,
			ScriptOrigins:  scriptOrigins(s.cfg.Block.PlayerBaseURL, fragment.JQueryURL),
		},
		EnableMetrics:  true,
		TracingService: tracing,
		EnableLogging:  true,
		RateLimit: middleware.RateLimitConfig{
			Requests:          s.cfg.Server.RateLimitRequests,
			Window:            s.cfg.Server.RateLimitWindow,
			TrustProxyHeaders: s.cfg.Server.TrustedProxies != "",
		},
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	middleware.ApplyStack(r, s.stackConfig())

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(openapi.Document)
	})
	r.Handle("/static/*", http.StripPrefix("/static/", staticHandler()))

	r.Route("/blocks/{blockID}", func(r chi.Router) {
		r.Use(auth.Middleware(auth.Config{
			JWTSecret:       s.cfg.Auth.JWTSecret,
			UserHeader:      s.cfg.Auth.UserHeader,
			AllowQueryToken: true,
		}))
		r.Use(middleware.CSRFProtection(nil))

		r.Get("/student_view", s.handleStudentView)
		r.Get("/studio_view", s.handleStudioView)
		r.Post("/handler/{handler}", s.handleBlockHandler)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func staticHandler() http.Handler {
	files := http.FileServer(http.FS(block.Static()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}

// scriptOrigins returns the scheme://host of each absolute URL.
func scriptOrigins(urls ...string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			continue
		}
		origin := u.Scheme + "://" + u.Host
		if !seen[origin] {
			seen[origin] = true
			out = append(out, origin)
		}
	}
	return out
}

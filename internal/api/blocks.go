// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/mediablock/internal/api/middleware"
	"github.com/ManuGH/mediablock/internal/auth"
	"github.com/ManuGH/mediablock/internal/block"
	"github.com/ManuGH/mediablock/internal/fragment"
	"github.com/ManuGH/mediablock/internal/log"
	"github.com/ManuGH/mediablock/internal/store"
	"github.com/ManuGH/mediablock/internal/telemetry"
)

const maxBlockIDLen = 255

// Block handler names.
const (
	handlerStudioSubmit      = "studio_submit"
	handlerReportProgress    = "report_progress"
	handlerPublishCompletion = "publish_completion"
)

var errBadBody = errors.New("invalid JSON body")

// scopeOp runs against an acquired scope. It returns the HTTP response;
// the scope is committed before the response is written.
type scopeOp func(ctx context.Context, sc *store.Scope) (status int, body any, err error)

// withScope acquires the (block, user) scope of r, runs op, commits and
// writes the response. Only storage failures surface as 500.
func (s *Server) withScope(w http.ResponseWriter, r *http.Request, operation string, op scopeOp) (status int, body any, ok bool) {
	blockID := chi.URLParam(r, "blockID")
	if blockID == "" || len(blockID) > maxBlockIDLen || !utf8.ValidString(blockID) {
		writeError(w, http.StatusBadRequest, "invalid block id")
		return 0, nil, false
	}
	userID := auth.PrincipalFromContext(r.Context()).ID

	ctx := log.ContextWithBlock(r.Context(), blockID, userID)
	ctx, span := telemetry.Tracer("mediablock/api").Start(ctx, "block."+operation)
	span.SetAttributes(telemetry.BlockAttributes(blockID, userID, operation)...)
	defer span.End()

	logger := log.WithComponentFromContext(ctx, "api")

	sc, err := s.store.Acquire(ctx, blockID, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Str(log.FieldEvent, "store.acquire_failed").Msg("cannot load block state")
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return 0, nil, false
	}
	defer sc.Release()

	status, body, err = op(ctx, sc)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Str(log.FieldEvent, operation+".failed").Msg("block operation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return 0, nil, false
	}
	if err := sc.Commit(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Str(log.FieldEvent, "store.commit_failed").Msg("cannot save block state")
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return 0, nil, false
	}
	return status, body, true
}

func (s *Server) handleStudentView(w http.ResponseWriter, r *http.Request) {
	var title string
	status, body, ok := s.withScope(w, r, "student_view", func(ctx context.Context, sc *store.Scope) (int, any, error) {
		out, err := s.block.StudentView(ctx, sc)
		if err != nil {
			return 0, nil, err
		}
		title = out.View.DisplayName
		if title == "" {
			title = sc.Settings.DisplayName
		}
		return http.StatusOK, out.Fragment, nil
	})
	if !ok {
		return
	}
	s.writeFragment(w, r, status, body.(*fragment.Fragment), title)
}

func (s *Server) handleStudioView(w http.ResponseWriter, r *http.Request) {
	var title string
	status, body, ok := s.withScope(w, r, "studio_view", func(ctx context.Context, sc *store.Scope) (int, any, error) {
		frag, err := s.block.StudioView(ctx, sc)
		if err != nil {
			return 0, nil, err
		}
		title = sc.Settings.DisplayName
		return http.StatusOK, frag, nil
	})
	if !ok {
		return
	}
	s.writeFragment(w, r, status, body.(*fragment.Fragment), title)
}

func (s *Server) writeFragment(w http.ResponseWriter, r *http.Request, status int, frag *fragment.Fragment, title string) {
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, status, frag)
		return
	}

	var buf bytes.Buffer
	err := frag.Render(&buf, fragment.Page{
		Title:       title,
		HandlerBase: "/blocks/" + url.PathEscape(chi.URLParam(r, "blockID")) + "/handler/",
		Query:       identityQuery(r),
		Nonce:       middleware.Nonce(r.Context()),
	})
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldEvent, "page.render_failed").Msg("cannot render page")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// identityQuery carries the caller's identity into the page's handler calls.
func identityQuery(r *http.Request) url.Values {
	q := url.Values{}
	if tok := r.URL.Query().Get(auth.QueryToken); tok != "" {
		q.Set(auth.QueryToken, tok)
		return q
	}
	if p := auth.PrincipalFromContext(r.Context()); p.Source == auth.SourceHeader {
		q.Set(auth.QueryUserID, p.ID)
	}
	return q
}

func (s *Server) handleBlockHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "handler")
	switch name {
	case handlerStudioSubmit, handlerReportProgress, handlerPublishCompletion:
	default:
		writeError(w, http.StatusNotFound, "unknown handler")
		return
	}

	raw, err := readJSONBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var op scopeOp
	switch name {
	case handlerStudioSubmit:
		var req block.EditRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			writeError(w, http.StatusBadRequest, errBadBody.Error())
			return
		}
		op = func(ctx context.Context, sc *store.Scope) (int, any, error) {
			s.block.SubmitEdit(ctx, sc, req)
			return http.StatusOK, resultSuccess, nil
		}
	case handlerReportProgress:
		var req block.ProgressRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			writeError(w, http.StatusBadRequest, errBadBody.Error())
			return
		}
		op = func(ctx context.Context, sc *store.Scope) (int, any, error) {
			n, err := s.block.ReportProgress(ctx, sc, req)
			if errors.Is(err, block.ErrInvalidProgress) {
				return http.StatusOK, resultError, nil
			}
			if err != nil {
				return 0, nil, err
			}
			telemetry.Annotate(ctx, telemetry.ProgressAttribute(n))
			return http.StatusOK, map[string]int{"progress": n}, nil
		}
	case handlerPublishCompletion:
		op = func(ctx context.Context, sc *store.Scope) (int, any, error) {
			s.block.PublishCompletion(ctx, sc, raw)
			return http.StatusOK, resultOK, nil
		}
	}

	status, body, ok := s.withScope(w, r, name, op)
	if !ok {
		return
	}
	writeJSON(w, status, body)
}

// readJSONBody reads a bounded body and checks it is one JSON value.
// studio_submit and report_progress additionally require an object, which
// their decoders enforce.
func readJSONBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errors.New("request body too large")
		}
		return nil, errBadBody
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !json.Valid(raw) {
		return nil, errBadBody
	}
	return raw, nil
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/mediablock/internal/auth"
	"github.com/ManuGH/mediablock/internal/block"
	"github.com/ManuGH/mediablock/internal/config"
	"github.com/ManuGH/mediablock/internal/grade"
	"github.com/ManuGH/mediablock/internal/health"
	"github.com/ManuGH/mediablock/internal/mediacms"
	"github.com/ManuGH/mediablock/internal/store"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []grade.Event
}

func (p *recordingPublisher) Name() string { return "recording" }

func (p *recordingPublisher) Publish(_ context.Context, ev grade.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type failingBackend struct{ *store.MemoryBackend }

func (*failingBackend) LoadSettings(context.Context, string) (store.Settings, bool, error) {
	return store.Settings{}, false, errors.New("disk on fire")
}

type testEnv struct {
	srv    *httptest.Server
	media  *mediacms.MockServer
	grades *recordingPublisher
	store  *store.Store
}

func testConfig() config.AppConfig {
	cfg := config.Defaults()
	cfg.Server.RateLimitRequests = 0
	return cfg
}

func newTestEnv(t *testing.T, cfg config.AppConfig) *testEnv {
	t.Helper()

	media := mediacms.NewMockServer()
	t.Cleanup(media.Close)

	grades := &recordingPublisher{}
	st := store.New(store.NewMemoryBackend(), store.Settings{
		MediaURL: media.URL + "/view?m=tok1",
	})
	b := block.New(
		mediacms.NewResolver(mediacms.NewClient(mediacms.Options{}), nil, 0),
		grades,
		block.Options{DefaultMediaURL: cfg.Block.DefaultMediaURL},
	)
	hm := health.NewManager("test")
	hm.RegisterChecker(health.NewPingChecker("store", true, st.Ping))

	s := New(cfg, Deps{Block: b, Store: st, Health: hm})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, media: media, grades: grades, store: st}
}

func (e *testEnv) do(t *testing.T, method, path, body string, header map[string]string) (*http.Response, string) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func asUser(id string) map[string]string { return map[string]string{"X-User-ID": id} }

func TestStudentView_HTMLPage(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.media.SetMedia("tok1", `{"hls_info":{"master_file":"/media/hls/tok1/master.m3u8"}}`)

	resp, body := env.do(t, http.MethodGet, "/blocks/b1/student_view", "", asUser("alice"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))

	assert.Contains(t, body, env.media.URL+"/media/hls/tok1/master.m3u8")
	assert.Contains(t, body, "application/x-mpegURL")
	assert.Contains(t, body, "https://vjs.zencdn.net/7.20.3/video.min.js")
	assert.Contains(t, body, "MediaCMSXBlock")
	assert.Contains(t, body, "user_id")
	assert.Contains(t, body, "alice")

	csp := resp.Header.Get("Content-Security-Policy")
	assert.Contains(t, csp, "https://vjs.zencdn.net")
	assert.Contains(t, csp, "https://code.jquery.com")
	assert.Contains(t, csp, "'nonce-")
	assert.Contains(t, body, `nonce="`)
}

func TestStudentView_JSONFragment(t *testing.T) {
	env := newTestEnv(t, testConfig())

	resp, body := env.do(t, http.MethodGet, "/blocks/b1/student_view?format=json", "", asUser("alice"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var frag struct {
		Content   string `json:"content"`
		JSInitFn  string `json:"js_init_fn"`
		Resources []struct {
			Kind string `json:"kind"`
			Data string `json:"data"`
		} `json:"resources"`
		Args map[string]any `json:"json_init_args"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &frag))
	assert.Equal(t, "MediaCMSXBlock", frag.JSInitFn)
	assert.Contains(t, frag.Content, env.media.URL+"/view?m=tok1")
	assert.EqualValues(t, 90, frag.Args["completion_percentage"])
	assert.Equal(t, []any{}, frag.Args["watched_ranges"])
}

func TestProgressFlow(t *testing.T) {
	env := newTestEnv(t, testConfig())
	alice := asUser("alice")

	_, body := env.do(t, http.MethodPost, "/blocks/b1/handler/report_progress", `{"progress": 50, "watched_ranges": [[0, 30]]}`, alice)
	assert.JSONEq(t, `{"progress": 50}`, body)

	_, body = env.do(t, http.MethodPost, "/blocks/b1/handler/report_progress", `{"progress": "30"}`, alice)
	assert.JSONEq(t, `{"progress": 50}`, body)
	assert.Zero(t, env.grades.count())

	_, body = env.do(t, http.MethodPost, "/blocks/b1/handler/report_progress", `{"progress": 92.4}`, alice)
	assert.JSONEq(t, `{"progress": 92}`, body)
	assert.Equal(t, 1, env.grades.count())

	resp, body := env.do(t, http.MethodPost, "/blocks/b1/handler/report_progress", `{"progress": "abc"}`, alice)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"result": "error"}`, body)

	// Other students are independent.
	_, body = env.do(t, http.MethodPost, "/blocks/b1/handler/report_progress", `{"progress": 10}`, asUser("bob"))
	assert.JSONEq(t, `{"progress": 10}`, body)

	sc, err := env.store.Acquire(context.Background(), "b1", "alice")
	require.NoError(t, err)
	defer sc.Release()
	assert.Equal(t, 92, sc.State.Progress)
	assert.JSONEq(t, `[[0, 30]]`, string(sc.State.WatchedRanges))
}

func TestStudioSubmitThenRenderResetsProgress(t *testing.T) {
	env := newTestEnv(t, testConfig())
	alice := asUser("alice")

	// First view records the URL progress is tracked against.
	resp, _ := env.do(t, http.MethodGet, "/blocks/b1/student_view?format=json", "", alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, body := env.do(t, http.MethodPost, "/blocks/b1/handler/report_progress", `{"progress": 40}`, alice)
	assert.JSONEq(t, `{"progress": 40}`, body)

	_, body = env.do(t, http.MethodPost, "/blocks/b1/handler/studio_submit",
		`{"display_name": "Week 2", "mediacms_url": "https://media.example.org/view?m=other", "completion_percentage": "80"}`, asUser("staff"))
	assert.JSONEq(t, `{"result": "success"}`, body)

	_, body = env.do(t, http.MethodGet, "/blocks/b1/student_view?format=json", "", alice)
	assert.Contains(t, body, "Week 2")
	assert.Contains(t, body, `"progress":0`)

	sc, err := env.store.Acquire(context.Background(), "b1", "alice")
	require.NoError(t, err)
	defer sc.Release()
	assert.Equal(t, 0, sc.State.Progress)
	assert.Equal(t, "https://media.example.org/view?m=other", sc.State.LastWatchedURL)
	assert.Equal(t, 80, sc.Settings.CompletionPercentage)
}

func TestStudioView(t *testing.T) {
	env := newTestEnv(t, testConfig())

	resp, body := env.do(t, http.MethodGet, "/blocks/b1/studio_view", "", asUser("staff"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "MediaCMSStudioXBlock")
	assert.Contains(t, body, `name="completion_percentage"`)
	assert.Contains(t, body, "/blocks/b1/handler/")
}

func TestPublishCompletion(t *testing.T) {
	env := newTestEnv(t, testConfig())

	_, body := env.do(t, http.MethodPost, "/blocks/b1/handler/publish_completion", `{"completion": 1.0}`, asUser("alice"))
	assert.JSONEq(t, `{"result": "ok"}`, body)
}

func TestHandlerErrors(t *testing.T) {
	env := newTestEnv(t, testConfig())

	resp, body := env.do(t, http.MethodPost, "/blocks/b1/handler/unknown", `{}`, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error": "unknown handler"}`, body)

	resp, _ = env.do(t, http.MethodPost, "/blocks/b1/handler/report_progress", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/blocks/b1/handler/report_progress", `[1, 2]`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/blocks/b1/handler/report_progress", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/blocks/b1/handler/report_progress", `{"progress": 1}`,
		map[string]string{"Origin": "https://evil.example"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStorageFailureIs500(t *testing.T) {
	st := store.New(&failingBackend{MemoryBackend: store.NewMemoryBackend()}, store.Settings{})
	b := block.New(nil, nil, block.Options{})
	srv := httptest.NewServer(New(testConfig(), Deps{Block: b, Store: st}).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/blocks/b1/handler/report_progress", "application/json", strings.NewReader(`{"progress": 5}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "storage unavailable", body["error"])
}

func TestJWTIdentity(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	env := newTestEnv(t, cfg)

	resp, _ := env.do(t, http.MethodPost, "/blocks/b1/handler/report_progress", `{"progress": 5}`, asUser("alice"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tok, err := auth.IssueHS256(cfg.Auth.JWTSecret, "alice", time.Minute)
	require.NoError(t, err)

	_, body := env.do(t, http.MethodPost, "/blocks/b1/handler/report_progress", `{"progress": 5}`,
		map[string]string{"Authorization": "Bearer " + tok})
	assert.JSONEq(t, `{"progress": 5}`, body)

	resp, body = env.do(t, http.MethodGet, "/blocks/b1/student_view?token="+tok, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, tok)
}

func TestProbesAndMetrics(t *testing.T) {
	env := newTestEnv(t, testConfig())

	resp, _ := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"ready":true`)

	env.do(t, http.MethodGet, "/blocks/b1/student_view?format=json", "", nil)
	resp, body = env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "mediablock_http_request_duration_seconds")
	assert.Contains(t, body, `route="/blocks/{blockID}/student_view"`)
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t, testConfig())

	resp, body := env.do(t, http.MethodGet, "/static/js/src/mediacms.js", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "MediaCMSXBlock")

	resp, _ = env.do(t, http.MethodGet, "/static/js/", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestScriptOrigins(t *testing.T) {
	assert.Equal(t,
		[]string{"https://vjs.zencdn.net", "https://code.jquery.com"},
		scriptOrigins("https://vjs.zencdn.net/7.20.3", "https://code.jquery.com/jquery.js", "https://vjs.zencdn.net/x", "relative/path"))
}

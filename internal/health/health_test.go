// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/mediablock/internal/config"
)

type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(context.Context) CheckResult {
	return CheckResult{Status: m.status}
}

func TestManager_Health_NoCheckers(t *testing.T) {
	m := NewManager("v1.0.0")

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.GreaterOrEqual(t, resp.Uptime, int64(0))
	assert.Nil(t, resp.Checks)
}

func TestManager_Health_WithCheckers(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "healthy", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
	assert.Equal(t, StatusDegraded, resp.Checks["degraded"].Status)
}

func TestManager_Ready(t *testing.T) {
	tests := []struct {
		name      string
		checkers  []Checker
		wantReady bool
		want      Status
	}{
		{"none", nil, true, StatusHealthy},
		{"healthy", []Checker{&mockChecker{"a", StatusHealthy}, &mockChecker{"b", StatusHealthy}}, true, StatusHealthy},
		{"degraded", []Checker{&mockChecker{"a", StatusDegraded}}, true, StatusDegraded},
		{"unhealthy wins", []Checker{&mockChecker{"a", StatusUnhealthy}, &mockChecker{"b", StatusDegraded}}, false, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("v1")
			for _, c := range tt.checkers {
				m.RegisterChecker(c)
			}
			resp := m.Ready(context.Background())
			assert.Equal(t, tt.wantReady, resp.Ready)
			assert.Equal(t, tt.want, resp.Status)
		})
	}
}

func TestManager_ServeHealth(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "store", status: StatusUnhealthy})

	w := httptest.NewRecorder()
	m.ServeHealth(w, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Contains(t, resp.Checks, "store")
}

func TestManager_ServeReady(t *testing.T) {
	m := NewManager("v1.0.0")
	w := httptest.NewRecorder()
	m.ServeReady(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	m.RegisterChecker(&mockChecker{name: "store", status: StatusUnhealthy})
	w = httptest.NewRecorder()
	m.ServeReady(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp ReadinessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Ready)
}

func TestProbe_ChecksRunConcurrently(t *testing.T) {
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)
	blocking := func(context.Context) error {
		started.Done()
		<-release
		return nil
	}

	m := NewManager("v1")
	m.RegisterChecker(NewPingChecker("store", true, blocking))
	m.RegisterChecker(NewPingChecker("cache", false, blocking))

	done := make(chan ReadinessResponse)
	go func() { done <- m.Ready(context.Background()) }()

	// both checks must be in flight at once before either returns
	started.Wait()
	close(release)

	resp := <-done
	assert.True(t, resp.Ready)
	assert.Len(t, resp.Checks, 2)
}

func TestStatus_Worse(t *testing.T) {
	assert.True(t, StatusUnhealthy.worse(StatusDegraded))
	assert.True(t, StatusDegraded.worse(StatusHealthy))
	assert.False(t, StatusHealthy.worse(StatusDegraded))
	assert.False(t, StatusDegraded.worse(StatusDegraded))
}

func TestPingChecker(t *testing.T) {
	ctx := context.Background()

	ok := NewPingChecker("store", true, func(context.Context) error { return nil })
	assert.Equal(t, "store", ok.Name())
	assert.Equal(t, StatusHealthy, ok.Check(ctx).Status)

	critical := NewPingChecker("store", true, func(context.Context) error { return errors.New("closed") })
	res := critical.Check(ctx)
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, "closed", res.Error)

	optional := NewPingChecker("cache", false, func(context.Context) error { return errors.New("down") })
	assert.Equal(t, StatusDegraded, optional.Check(ctx).Status)

	unset := NewPingChecker("grades", false, nil)
	assert.Equal(t, StatusHealthy, unset.Check(ctx).Status)
}

func TestPerformStartupChecks(t *testing.T) {
	cfg := config.Defaults()
	cfg.Store.Dir = filepath.Join(t.TempDir(), "state")
	require.NoError(t, PerformStartupChecks(cfg))
	assert.DirExists(t, cfg.Store.Dir)

	bad := cfg
	bad.Server.ListenAddr = "nope"
	require.Error(t, PerformStartupChecks(bad))

	bad = cfg
	bad.Block.DefaultMediaURL = "ftp://media.example.org/view?m=x"
	require.Error(t, PerformStartupChecks(bad))
}

func TestPerformStartupChecks_DataDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	cfg := config.Defaults()
	cfg.Store.Dir = file
	require.Error(t, PerformStartupChecks(cfg))
}

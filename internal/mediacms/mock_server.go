// SPDX-License-Identifier: MIT
package mediacms

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MockServer is a configurable MediaCMS API stand-in for tests.
type MockServer struct {
	*httptest.Server

	mu       sync.RWMutex
	media    map[string]string // token -> raw JSON body
	status   map[string]int    // token -> forced status
	delay    time.Duration
	requests atomic.Int64
}

// NewMockServer starts a mock serving /api/v1/media/{token}.
func NewMockServer() *MockServer {
	m := &MockServer{
		media:  make(map[string]string),
		status: make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/media/", m.handleMedia)
	m.Server = httptest.NewServer(mux)
	return m
}

// SetMedia registers the JSON body returned for token.
func (m *MockServer) SetMedia(token, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.media[token] = body
}

// SetStatus forces an HTTP status for token.
func (m *MockServer) SetStatus(token string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[token] = status
}

// SetDelay delays every response.
func (m *MockServer) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Requests returns how many media requests were served.
func (m *MockServer) Requests() int64 {
	return m.requests.Load()
}

func (m *MockServer) handleMedia(w http.ResponseWriter, r *http.Request) {
	m.requests.Add(1)
	token := strings.TrimPrefix(r.URL.Path, "/api/v1/media/")

	m.mu.RLock()
	body, ok := m.media[token]
	status := m.status[token]
	delay := m.delay
	m.mu.RUnlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if !ok {
		http.Error(w, `{"detail":"Not found."}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

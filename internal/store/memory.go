// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps everything in process memory. Used in tests and when
// no data directory is configured.
type MemoryBackend struct {
	mu       sync.RWMutex
	settings map[string]Settings
	states   map[string]UserState
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		settings: make(map[string]Settings),
		states:   make(map[string]UserState),
	}
}

func (m *MemoryBackend) LoadSettings(_ context.Context, blockID string) (Settings, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.settings[blockID]
	return s, ok, nil
}

func (m *MemoryBackend) SaveSettings(_ context.Context, blockID string, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[blockID] = s
	return nil
}

func (m *MemoryBackend) LoadUserState(_ context.Context, blockID, userID string) (UserState, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[lockKey(blockID, userID)]
	return st.clone(), ok, nil
}

func (m *MemoryBackend) SaveUserState(_ context.Context, blockID, userID string, st UserState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[lockKey(blockID, userID)] = st.clone()
	return nil
}

func (m *MemoryBackend) Ping(context.Context) error { return nil }

func (m *MemoryBackend) Close() error { return nil }

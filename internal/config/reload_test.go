// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestHolder_ReloadNotifiesListeners(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "dataDir: "+dir+"\nlogLevel: info\n")

	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader)
	var seen atomic.Value
	h.OnReload(func(c AppConfig) { seen.Store(c.LogLevel) })

	require.NoError(t, os.WriteFile(path, []byte("dataDir: "+dir+"\nlogLevel: debug\n"), 0o600))
	require.NoError(t, h.Reload())

	assert.Equal(t, "debug", h.Get().LogLevel)
	assert.Equal(t, "debug", seen.Load())
}

func TestHolder_ReloadKeepsCurrentOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "dataDir: "+dir+"\n")

	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader)

	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: mongo\n"), 0o600))
	require.Error(t, h.Reload())
	assert.Equal(t, "sqlite", h.Get().Store.Backend)
}

func TestHolder_WatcherReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "dataDir: "+dir+"\nlogLevel: info\n")

	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader)
	require.NoError(t, h.StartWatcher(context.Background()))
	defer h.Stop()

	require.NoError(t, os.WriteFile(path, []byte("dataDir: "+dir+"\nlogLevel: warn\n"), 0o600))

	require.Eventually(t, func() bool {
		return h.Get().LogLevel == "warn"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestHolder_WatcherNoFile(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := NewHolder(Defaults(), NewLoader("", ""))
	require.NoError(t, h.StartWatcher(context.Background()))
	h.Stop()
}

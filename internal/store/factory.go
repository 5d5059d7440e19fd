// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"fmt"
	"path/filepath"
)

// NewBackend creates a backend by name. An empty backend means sqlite; a
// persistent backend without dir falls back to memory.
func NewBackend(ctx context.Context, backend, dir string) (Backend, error) {
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "sqlite":
		if dir == "" {
			return NewMemoryBackend(), nil
		}
		return NewSqliteBackend(ctx, filepath.Join(dir, "mediablock.sqlite"))
	case "badger":
		if dir == "" {
			return NewMemoryBackend(), nil
		}
		return OpenBadgerBackend(filepath.Join(dir, "badger"))
	case "memory":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown block store backend: %s (supported: sqlite, badger, memory)", backend)
	}
}

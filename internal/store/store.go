// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package store persists block settings and per-student state.
//
// Callers never touch a Backend directly. Acquire returns a Scope holding
// the block's settings and the student's state under a per (block, user)
// lock; the caller mutates the scope, calls Commit to persist what changed,
// and always calls Release.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Default field values of a newly placed block.
const (
	DefaultDisplayName          = "MediaCMS Video"
	DefaultCompletionPercentage = 90
)

var (
	// ErrReleased is returned when a released scope is committed.
	ErrReleased = errors.New("store: scope already released")
	// ErrInvalidKey is returned for empty block or user ids.
	ErrInvalidKey = errors.New("store: block id and user id are required")
)

// Settings is the author-scoped configuration of one block.
type Settings struct {
	DisplayName          string `json:"display_name"`
	MediaURL             string `json:"mediacms_url"`
	CompletionPercentage int    `json:"completion_percentage"`
}

// UserState is one student's state in one block.
type UserState struct {
	Progress       int             `json:"progress"`
	WatchedRanges  json.RawMessage `json:"watched_ranges"`
	LastWatchedURL string          `json:"last_watched_url"`
}

// EmptyRanges is the stored value of watched_ranges before any report.
var EmptyRanges = json.RawMessage(`[]`)

// NewUserState returns the state of a student who never watched the block.
func NewUserState() UserState {
	return UserState{WatchedRanges: cloneRaw(EmptyRanges)}
}

func (u UserState) clone() UserState {
	u.WatchedRanges = cloneRaw(u.WatchedRanges)
	return u
}

func (u UserState) equal(o UserState) bool {
	return u.Progress == o.Progress &&
		u.LastWatchedURL == o.LastWatchedURL &&
		bytes.Equal(u.WatchedRanges, o.WatchedRanges)
}

func cloneRaw(r json.RawMessage) json.RawMessage {
	if r == nil {
		return nil
	}
	return append(json.RawMessage(nil), r...)
}

// Backend is the persistence contract implemented by every storage engine.
// Load methods report found=false for records that were never saved.
type Backend interface {
	LoadSettings(ctx context.Context, blockID string) (Settings, bool, error)
	SaveSettings(ctx context.Context, blockID string, s Settings) error
	LoadUserState(ctx context.Context, blockID, userID string) (UserState, bool, error)
	SaveUserState(ctx context.Context, blockID, userID string, st UserState) error
	Ping(ctx context.Context) error
	Close() error
}

// Store hands out scopes over a Backend.
type Store struct {
	backend  Backend
	defaults Settings
	locks    *keyedMutex
}

// New wraps backend. defaults are used for blocks without saved settings;
// zero fields fall back to the package defaults.
func New(backend Backend, defaults Settings) *Store {
	if defaults.DisplayName == "" {
		defaults.DisplayName = DefaultDisplayName
	}
	if defaults.CompletionPercentage == 0 {
		defaults.CompletionPercentage = DefaultCompletionPercentage
	}
	return &Store{backend: backend, defaults: defaults, locks: newKeyedMutex()}
}

// Defaults returns the settings of a block that was never edited.
func (s *Store) Defaults() Settings {
	return s.defaults
}

// Acquire locks (blockID, userID) and loads its settings and state.
func (s *Store) Acquire(ctx context.Context, blockID, userID string) (*Scope, error) {
	if blockID == "" || userID == "" {
		return nil, ErrInvalidKey
	}
	key := lockKey(blockID, userID)
	if err := s.locks.Lock(ctx, key); err != nil {
		return nil, err
	}

	settings, found, err := s.backend.LoadSettings(ctx, blockID)
	if err != nil {
		s.locks.Unlock(key)
		return nil, fmt.Errorf("load settings %s: %w", blockID, err)
	}
	if !found {
		settings = s.defaults
	}

	state, found, err := s.backend.LoadUserState(ctx, blockID, userID)
	if err != nil {
		s.locks.Unlock(key)
		return nil, fmt.Errorf("load user state %s/%s: %w", blockID, userID, err)
	}
	if !found {
		state = NewUserState()
	}
	if state.WatchedRanges == nil {
		state.WatchedRanges = cloneRaw(EmptyRanges)
	}

	return &Scope{
		BlockID:      blockID,
		UserID:       userID,
		Settings:     settings,
		State:        state.clone(),
		origSettings: settings,
		origState:    state,
		store:        s,
		key:          key,
	}, nil
}

// Ping checks the backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Scope is exclusive access to one block instance for one student.
type Scope struct {
	BlockID  string
	UserID   string
	Settings Settings
	State    UserState

	origSettings Settings
	origState    UserState
	store        *Store
	key          string
	released     bool
}

// Dirty reports whether the scope differs from what was loaded.
func (sc *Scope) Dirty() (settings, state bool) {
	return sc.Settings != sc.origSettings, !sc.State.equal(sc.origState)
}

// Commit persists the changed parts of the scope. The scope stays held.
func (sc *Scope) Commit(ctx context.Context) error {
	if sc.released {
		return ErrReleased
	}
	settingsDirty, stateDirty := sc.Dirty()

	if settingsDirty {
		if err := sc.store.backend.SaveSettings(ctx, sc.BlockID, sc.Settings); err != nil {
			return fmt.Errorf("save settings %s: %w", sc.BlockID, err)
		}
		sc.origSettings = sc.Settings
	}
	if stateDirty {
		st := sc.State.clone()
		if st.WatchedRanges == nil {
			st.WatchedRanges = cloneRaw(EmptyRanges)
		}
		if err := sc.store.backend.SaveUserState(ctx, sc.BlockID, sc.UserID, st); err != nil {
			return fmt.Errorf("save user state %s/%s: %w", sc.BlockID, sc.UserID, err)
		}
		sc.origState = st
	}
	return nil
}

// Release unlocks the scope. Uncommitted changes are discarded.
// Calling Release more than once is a no-op.
func (sc *Scope) Release() {
	if sc.released {
		return
	}
	sc.released = true
	sc.store.locks.Unlock(sc.key)
}

func lockKey(blockID, userID string) string {
	return blockID + "\x00" + userID
}

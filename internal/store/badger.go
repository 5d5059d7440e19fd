// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// BadgerBackend stores JSON records in an embedded Badger database:
//   - settings: key = "settings:<block>"
//   - state:    key = "state:<block>\x00<user>"
type BadgerBackend struct {
	db *badger.DB
}

// OpenBadgerBackend opens (or creates) a Badger database in dir.
// An empty dir opens an in-memory database.
func OpenBadgerBackend(dir string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerBackend{db: db}, nil
}

func settingsKey(blockID string) []byte { return []byte("settings:" + blockID) }

func stateKey(blockID, userID string) []byte {
	return []byte("state:" + lockKey(blockID, userID))
}

func (b *BadgerBackend) get(key []byte, out any) (bool, error) {
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *BadgerBackend) put(key []byte, in any) error {
	buf, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, buf)
	})
}

func (b *BadgerBackend) LoadSettings(_ context.Context, blockID string) (Settings, bool, error) {
	var out Settings
	found, err := b.get(settingsKey(blockID), &out)
	return out, found, err
}

func (b *BadgerBackend) SaveSettings(_ context.Context, blockID string, s Settings) error {
	return b.put(settingsKey(blockID), s)
}

func (b *BadgerBackend) LoadUserState(_ context.Context, blockID, userID string) (UserState, bool, error) {
	var out UserState
	found, err := b.get(stateKey(blockID, userID), &out)
	return out, found, err
}

func (b *BadgerBackend) SaveUserState(_ context.Context, blockID, userID string, st UserState) error {
	if len(st.WatchedRanges) == 0 {
		st.WatchedRanges = EmptyRanges
	}
	return b.put(stateKey(blockID, userID), st)
}

// Ping fails once the database has been closed.
func (b *BadgerBackend) Ping(context.Context) error {
	if b.db.IsClosed() {
		return errors.New("badger: database closed")
	}
	return nil
}

func (b *BadgerBackend) Close() error { return b.db.Close() }

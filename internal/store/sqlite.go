// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/mediablock/internal/log"
	"github.com/ManuGH/mediablock/internal/persistence/sqlite"
)

var sqliteMigrations = []sqlite.Migration{
	{Version: 1, SQL: `
	CREATE TABLE IF NOT EXISTS block_settings (
		block_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		media_url TEXT NOT NULL,
		completion_percentage INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_state (
		block_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		watched_ranges TEXT NOT NULL DEFAULT '[]',
		last_watched_url TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (block_id, user_id)
	);
	CREATE INDEX IF NOT EXISTS idx_user_state_user ON user_state(user_id);
	`},
}

// SqliteBackend implements Backend using SQLite.
type SqliteBackend struct {
	DB *sql.DB
}

// NewSqliteBackend opens dbPath, applies migrations and runs a quick
// integrity check.
func NewSqliteBackend(ctx context.Context, dbPath string) (*SqliteBackend, error) {
	db, err := sqlite.Open(ctx, dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(ctx, db, sqliteMigrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("block store: migration failed: %w", err)
	}

	if err := sqlite.Verify(ctx, db, sqlite.QuickCheck); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("block store: %w", err)
	}

	logger := log.WithComponent("store")
	logger.Info().Str(log.FieldPath, dbPath).Msg("sqlite block store ready")
	return &SqliteBackend{DB: db}, nil
}

func (s *SqliteBackend) LoadSettings(ctx context.Context, blockID string) (Settings, bool, error) {
	var out Settings
	err := s.DB.QueryRowContext(ctx,
		`SELECT display_name, media_url, completion_percentage FROM block_settings WHERE block_id = ?`,
		blockID,
	).Scan(&out.DisplayName, &out.MediaURL, &out.CompletionPercentage)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, false, nil
	}
	if err != nil {
		return Settings{}, false, err
	}
	return out, true, nil
}

func (s *SqliteBackend) SaveSettings(ctx context.Context, blockID string, in Settings) error {
	_, err := s.DB.ExecContext(ctx, `
	INSERT INTO block_settings (block_id, display_name, media_url, completion_percentage, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(block_id) DO UPDATE SET
		display_name = excluded.display_name,
		media_url = excluded.media_url,
		completion_percentage = excluded.completion_percentage,
		updated_at = excluded.updated_at
	`, blockID, in.DisplayName, in.MediaURL, in.CompletionPercentage, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *SqliteBackend) LoadUserState(ctx context.Context, blockID, userID string) (UserState, bool, error) {
	var (
		out    UserState
		ranges string
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT progress, watched_ranges, last_watched_url FROM user_state WHERE block_id = ? AND user_id = ?`,
		blockID, userID,
	).Scan(&out.Progress, &ranges, &out.LastWatchedURL)
	if errors.Is(err, sql.ErrNoRows) {
		return UserState{}, false, nil
	}
	if err != nil {
		return UserState{}, false, err
	}
	out.WatchedRanges = []byte(ranges)
	return out, true, nil
}

func (s *SqliteBackend) SaveUserState(ctx context.Context, blockID, userID string, st UserState) error {
	ranges := string(st.WatchedRanges)
	if ranges == "" {
		ranges = string(EmptyRanges)
	}
	_, err := s.DB.ExecContext(ctx, `
	INSERT INTO user_state (block_id, user_id, progress, watched_ranges, last_watched_url, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(block_id, user_id) DO UPDATE SET
		progress = excluded.progress,
		watched_ranges = excluded.watched_ranges,
		last_watched_url = excluded.last_watched_url,
		updated_at = excluded.updated_at
	`, blockID, userID, st.Progress, ranges, st.LastWatchedURL, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *SqliteBackend) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *SqliteBackend) Close() error {
	return s.DB.Close()
}

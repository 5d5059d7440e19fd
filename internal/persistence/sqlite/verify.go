// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Check selects the SQLite consistency pragma.
type Check string

const (
	// QuickCheck skips index content verification.
	QuickCheck Check = "quick_check"
	// FullCheck runs integrity_check.
	FullCheck Check = "integrity_check"
)

// CorruptError lists the diagnostics SQLite reported for a damaged file.
type CorruptError struct {
	Check  Check
	Issues []string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("sqlite %s: %s", e.Check, strings.Join(e.Issues, "; "))
}

// Verify runs check against db. A damaged database yields *CorruptError.
func Verify(ctx context.Context, db *sql.DB, check Check) error {
	if check != FullCheck {
		check = QuickCheck
	}
	rows, err := db.QueryContext(ctx, "PRAGMA "+string(check))
	if err != nil {
		return fmt.Errorf("sqlite %s: %w", check, err)
	}
	defer func() { _ = rows.Close() }()

	var issues []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return fmt.Errorf("sqlite %s: scan: %w", check, err)
		}
		if !strings.EqualFold(line, "ok") {
			issues = append(issues, line)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite %s: %w", check, err)
	}
	if len(issues) > 0 {
		return &CorruptError{Check: check, Issues: issues}
	}
	return nil
}

package repositories

import (
	"database/sql"
	"fmt"
	"strings"
)

// NextSequence increments and returns the next sequence number for table in its own transaction.
//
// Sequence numbers give cached tracks a stable, human-readable order (cache list shows "42. Artist - Title").
func NextSequence(db *sql.DB, table string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := NextSequenceTx(tx, table)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}

// NextSequenceTx is [NextSequence] inside a caller-owned transaction, so a failed
// insert in the same transaction does not consume a number.
func NextSequenceTx(tx *sql.Tx, table string) (int, error) {
	if !isIdentifier(table) {
		return 0, fmt.Errorf("invalid sequence table name %q", table)
	}
	sequenceTable := table + "_sequence"

	if _, err := tx.Exec(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable)); err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	if err := tx.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	return sequence, nil
}

// isIdentifier reports whether s is safe to interpolate as a table name.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	}) < 0
}

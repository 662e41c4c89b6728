// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package numbering

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ManuGH/plutosync/internal/log"
	"github.com/ManuGH/plutosync/internal/persistence/sqlite"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS channel_numbers (
	channel_id TEXT PRIMARY KEY,
	number TEXT NOT NULL,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS registry_meta (
	key TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
`

// SQLiteStore persists the table in a SQLite database.
type SQLiteStore struct {
	DB *sql.DB
}

// OpenSQLiteStore opens (and migrates) the database at dbPath.
func OpenSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(ctx, db, schemaVersion, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("number store: migration failed: %w", err)
	}
	if problems, err := sqlite.QuickCheck(ctx, db); err == nil && len(problems) > 0 {
		logger := log.WithComponent("numbering")
		logger.Warn().
			Str(log.FieldEvent, "numbering.integrity_check_failed").
			Str(log.FieldPath, dbPath).
			Str("problems", strings.Join(problems, "; ")).
			Msg("channel number database reports corruption")
	}
	return &SQLiteStore{DB: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (Table, error) {
	t := NewTable()

	err := s.DB.QueryRowContext(ctx, `SELECT value FROM registry_meta WHERE key = 'last_number'`).Scan(&t.LastNumber)
	if err != nil && err != sql.ErrNoRows {
		return Table{}, fmt.Errorf("read last number: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT channel_id, number, name FROM channel_numbers`)
	if err != nil {
		return Table{}, fmt.Errorf("read channel numbers: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var id string
		var rec Record
		if err := rows.Scan(&id, &rec.Number, &rec.Name); err != nil {
			return Table{}, err
		}
		t.Records[id] = rec
	}
	return t, rows.Err()
}

// Save rewrites the table in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, t Table) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM channel_numbers`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO channel_numbers (channel_id, number, name) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for id, rec := range t.Records {
		if _, err := stmt.ExecContext(ctx, id, rec.Number, rec.Name); err != nil {
			return fmt.Errorf("insert %s: %w", id, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
	INSERT INTO registry_meta (key, value) VALUES ('last_number', ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`, t.LastNumber); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.DB.Close()
}

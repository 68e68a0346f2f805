// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package persist is the daemon's optional SQLite-backed persistence
// hook. Disabled by default (see lib/config's Persist block), it
// snapshots session state periodically. The snapshots are only written:
// the daemon does not read them back on start or serve them over /v1,
// and the live driver connections themselves cannot survive a restart.
package persist

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bureau-foundation/agentcore/lib/codec"
	"github.com/bureau-foundation/agentcore/sessionmanager"
)

// Store is a SQLite-backed table of session snapshots. The full
// sessionmanager.Info is kept as a CBOR blob, alongside a handful of
// plain columns so ListSnapshots can filter/sort without decoding
// every row.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at path and ensures its
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %s: %w", path, err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	agent      TEXT NOT NULL,
	state      TEXT NOT NULL,
	ended      INTEGER NOT NULL,
	updated_at TEXT NOT NULL,
	snapshot   BLOB NOT NULL
);
`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// SaveSnapshot upserts one session's current Info into the sessions
// table, keyed by session id. The full Info is CBOR-encoded into the
// snapshot blob; agent/state/ended/updated_at are duplicated as plain
// columns so ListSnapshots can sort and filter without decoding every
// row.
func (s *Store) SaveSnapshot(ctx context.Context, info sessionmanager.Info, at time.Time) error {
	blob, err := codec.Marshal(info)
	if err != nil {
		return fmt.Errorf("encoding snapshot for session %s: %w", info.SessionID, err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO sessions (session_id, agent, state, ended, updated_at, snapshot)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
	agent = excluded.agent,
	state = excluded.state,
	ended = excluded.ended,
	updated_at = excluded.updated_at,
	snapshot = excluded.snapshot
`,
		info.SessionID, string(info.Agent), string(info.State), boolToInt(info.Ended),
		at.UTC().Format(time.RFC3339Nano), blob,
	)
	if err != nil {
		return fmt.Errorf("saving snapshot for session %s: %w", info.SessionID, err)
	}
	return nil
}

// LoadSnapshot decodes the stored Info for sessionID. Returns
// sql.ErrNoRows if no snapshot is on file.
func (s *Store) LoadSnapshot(ctx context.Context, sessionID string) (sessionmanager.Info, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM sessions WHERE session_id = ?`, sessionID).Scan(&blob)
	if err != nil {
		return sessionmanager.Info{}, err
	}
	var info sessionmanager.Info
	if err := codec.Unmarshal(blob, &info); err != nil {
		return sessionmanager.Info{}, fmt.Errorf("decoding snapshot for session %s: %w", sessionID, err)
	}
	return info, nil
}

// DeleteSnapshot removes a session's row. The daemon does not call it,
// so rows of deleted sessions stay in the table.
func (s *Store) DeleteSnapshot(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("deleting snapshot for session %s: %w", sessionID, err)
	}
	return nil
}

// Snapshot is one row read back from the sessions table.
type Snapshot struct {
	SessionID string
	Agent     string
	State     string
	Ended     bool
	UpdatedAt time.Time
}

// ListSnapshots returns every persisted session row, most recently
// updated first.
func (s *Store) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id, agent, state, ended, updated_at FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var ended int
		var updatedAt string
		if err := rows.Scan(&snap.SessionID, &snap.Agent, &snap.State, &ended, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		snap.Ended = ended != 0
		if parsed, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			snap.UpdatedAt = parsed
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading snapshot rows: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

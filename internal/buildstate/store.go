package buildstate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists one BuildState row per build_id in SQLite. Grounded on the
// teacher's SQLite persistence pattern (WAL journal mode, foreign keys
// pragma, additive migration by probing `pragma_table_info` before adding a
// column) generalized from cortex's multi-table schema to a single
// JSON-blob-backed table, since BuildState's shape — nested Graph, History,
// per-task usage maps — has no natural relational decomposition spec.md
// asks for.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) a SQLite-backed Store at path, applying
// the teacher's standard pragmas.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("buildstate: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("buildstate: %s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS build_states (
	build_id   TEXT PRIMARY KEY,
	phase      TEXT NOT NULL,
	data       BLOB NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("buildstate: migrate: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts state, bumping UpdatedAt. §8's round-trip property
// (Save(Load(s)) == s modulo UpdatedAt) depends on json marshaling being
// stable across a save/load cycle, which it is since BuildState has no
// unexported fields.
func (s *Store) Save(ctx context.Context, state *BuildState) error {
	now := time.Now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	state.UpdatedAt = now

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("buildstate: marshal %s: %w", state.BuildID, err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO build_states (build_id, phase, data, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(build_id) DO UPDATE SET
	phase = excluded.phase,
	data = excluded.data,
	updated_at = excluded.updated_at
`, state.BuildID, string(state.Phase), data, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("buildstate: save %s: %w", state.BuildID, err)
	}
	return nil
}

// Load reads the BuildState row for buildID, or (nil, sql.ErrNoRows) if
// none exists.
func (s *Store) Load(ctx context.Context, buildID string) (*BuildState, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM build_states WHERE build_id = ?`, buildID,
	).Scan(&data)
	if err != nil {
		return nil, err
	}
	var state BuildState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("buildstate: unmarshal %s: %w", buildID, err)
	}
	return &state, nil
}

// Delete removes buildID's row, if present.
func (s *Store) Delete(ctx context.Context, buildID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM build_states WHERE build_id = ?`, buildID)
	return err
}

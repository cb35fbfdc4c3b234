package draftstore

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists drafts to SQLite.
// It lets identifier callbacks handled by another process find the draft.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite draft store.
// The path should be a file path (e.g., "./drafts.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS drafts (
			draft_id TEXT NOT NULL PRIMARY KEY,
			flow_id TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			data BLOB NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_drafts_flow_id
		ON drafts(flow_id)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(flowID, draftID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	// Sequence is max + 1 within the flow; an update keeps it unless the
	// draft moves to another flow.
	_, err := s.db.Exec(`
		INSERT INTO drafts (draft_id, flow_id, sequence, timestamp, data)
		VALUES (
			?, ?,
			COALESCE((SELECT MAX(sequence) FROM drafts WHERE flow_id = ?), 0) + 1,
			?, ?
		)
		ON CONFLICT(draft_id) DO UPDATE SET
			sequence = CASE WHEN drafts.flow_id = excluded.flow_id
				THEN drafts.sequence ELSE excluded.sequence END,
			flow_id = excluded.flow_id,
			timestamp = excluded.timestamp,
			data = excluded.data
	`, draftID, flowID, flowID, time.Now().UTC().Format(time.RFC3339Nano), data)
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(draftID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var data []byte
	err := s.db.QueryRow(`
		SELECT data FROM drafts WHERE draft_id = ?
	`, draftID).Scan(&data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	return data, nil
}

// List implements Store.
func (s *SQLiteStore) List(flowID string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT draft_id, sequence, timestamp, LENGTH(data)
		FROM drafts
		WHERE flow_id = ?
		ORDER BY sequence
	`, flowID)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var info Info
		var timestamp string
		if err := rows.Scan(&info.DraftID, &info.Sequence, &timestamp, &info.Size); err != nil {
			return nil, fmt.Errorf("scan draft info: %w", err)
		}
		info.FlowID = flowID
		info.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drafts: %w", err)
	}
	return infos, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(draftID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.Exec(`DELETE FROM drafts WHERE draft_id = ?`, draftID); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// DeleteFlow implements Store.
func (s *SQLiteStore) DeleteFlow(flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.Exec(`DELETE FROM drafts WHERE flow_id = ?`, flowID); err != nil {
		return fmt.Errorf("delete flow drafts: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

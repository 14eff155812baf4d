// Package journal keeps a per-user history of emitted perception events in SQLite.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/teslashibe/go-cockpit/internal/log"
	"github.com/teslashibe/go-cockpit/pkg/perception"
)

// DefaultLimit is the number of entries Recent returns when limit <= 0.
const DefaultLimit = 10

// ErrClosed is returned by operations on a closed journal.
var ErrClosed = errors.New("journal: closed")

// schema.sql creates the events table and its lookup indexes.
//
//go:embed schema.sql
var schemaSQL string

// Entry is one journaled event.
type Entry struct {
	ID        string               `json:"id"`
	SessionID string               `json:"session_id"`
	User      string               `json:"user"`
	Kind      perception.EventKind `json:"kind"`
	Payload   json.RawMessage      `json:"payload"`
	FrameMs   float64              `json:"frame_ms"`
	CreatedAt time.Time            `json:"created_at"`
}

// Journal is an append-only event store.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the journal at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// Single writer; also keeps ":memory:" databases on one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	log.Info("journal opened", "path", path)
	return &Journal{db: db, now: time.Now}, nil
}

// Record appends every event in batch. Empty batches are ignored.
func (j *Journal) Record(ctx context.Context, sessionID, user string, batch perception.EventBatch) error {
	if batch.Empty() {
		return nil
	}
	if j.db == nil {
		return ErrClosed
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (id, session_id, user_id, kind, payload, frame_ms, created_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare journal insert: %w", err)
	}
	defer stmt.Close()

	created := j.now().UnixNano()
	frameMs := float64(batch.Timestamp) / float64(time.Millisecond)
	for i, ev := range batch.Events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode %s event: %w", ev.Kind(), err)
		}
		// Offset by position so events of one batch keep their order.
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), sessionID, user, string(ev.Kind()),
			string(payload), frameMs, created+int64(i)); err != nil {
			return fmt.Errorf("insert journal event: %w", err)
		}
	}
	return tx.Commit()
}

// Recent returns the newest entries for user, newest first.
func (j *Journal) Recent(ctx context.Context, user string, limit int) ([]Entry, error) {
	if j.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, kind, payload, frame_ms, created_ns
		FROM events
		WHERE user_id = ?
		ORDER BY created_ns DESC
		LIMIT ?
	`, user, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			kind    string
			payload string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.User, &kind, &payload, &e.FrameMs, &created); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		e.Kind = perception.EventKind(kind)
		e.Payload = json.RawMessage(payload)
		e.CreatedAt = time.Unix(0, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns how many entries the session has recorded.
func (j *Journal) Count(ctx context.Context, sessionID string) (int, error) {
	if j.db == nil {
		return 0, ErrClosed
	}
	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count journal events: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

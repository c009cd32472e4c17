// Package store persists chat messages in SQLite and serves them to a
// sliding window as a generator.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/tmc/chatwindow/message"
	"github.com/tmc/chatwindow/window"
)

// ErrNotFound is returned when an index is outside the stored messages.
var ErrNotFound = errors.New("store: message not found")

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	id        TEXT NOT NULL UNIQUE,
	type      TEXT NOT NULL,
	sender_id TEXT NOT NULL DEFAULT '',
	incoming  INTEGER NOT NULL DEFAULT 0,
	time      INTEGER NOT NULL,
	status    TEXT NOT NULL DEFAULT '',
	text      TEXT NOT NULL DEFAULT ''
);`

const columns = `id, type, sender_id, incoming, time, status, text`

// Store is a SQLite-backed, append-only message log. Messages are addressed
// by their position in insertion order, starting at 0.
type Store struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	s := &Store{db: db, log: zap.NewNop().Sugar()}
	for _, o := range opts {
		o(s)
	}
	s.log.Debugw("opened store", "path", path)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append stores msgs in order. Messages without an ID are given one.
func (s *Store) Append(ctx context.Context, msgs ...*message.Msg) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO messages (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx, m.ID, string(m.Type), m.SenderID, m.Incoming, m.Time.UnixNano(), string(m.Status), m.Text); err != nil {
			return fmt.Errorf("failed to insert message %s: %w", m.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	s.log.Debugw("appended messages", "count", len(msgs))
	return nil
}

// UpdateStatus records a new delivery status for the message with id.
func (s *Store) UpdateStatus(ctx context.Context, id string, status message.Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE messages SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update message %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	return nil
}

// Count returns the number of stored messages.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

// At returns the message at index.
func (s *Store) At(ctx context.Context, index int) (*message.Msg, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: index %d", ErrNotFound, index)
	}
	msgs, err := s.Range(ctx, index, index+1)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("%w: index %d", ErrNotFound, index)
	}
	return msgs[0], nil
}

// Range returns the messages with indices in [start, end). Indices outside
// the store are skipped.
func (s *Store) Range(ctx context.Context, start, end int) ([]*message.Msg, error) {
	start = max(start, 0)
	if end <= start {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM messages ORDER BY seq LIMIT ? OFFSET ?`, end-start, start)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []*message.Msg
	for rows.Next() {
		var (
			m        message.Msg
			typ      string
			status   string
			unixNano int64
		)
		if err := rows.Scan(&m.ID, &typ, &m.SenderID, &m.Incoming, &unixNano, &status, &m.Text); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Type = message.Type(typ)
		m.Status = message.Status(status)
		m.Time = time.Unix(0, unixNano)
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return msgs, nil
}

// All returns every stored message in order.
func (s *Store) All(ctx context.Context) ([]*message.Msg, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	return s.Range(ctx, 0, n)
}

// Seed appends n messages from the factory, continuing after the messages
// already stored.
func (s *Store) Seed(ctx context.Context, f *message.Factory, n int) error {
	count, err := s.Count(ctx)
	if err != nil {
		return err
	}
	gen := f.Generator()
	msgs := make([]*message.Msg, n)
	for i := range n {
		msgs[i] = gen(count + i)
	}
	return s.Append(ctx, msgs...)
}

// Generator returns a window generator reading from the store. A request
// for index i loads the page of up to pageSize messages ending at i, so the
// following requests for i-1, i-2, ... are served from memory. Indices that
// cannot be read produce a system placeholder.
func (s *Store) Generator(ctx context.Context, pageSize int) window.Generator[*message.Msg] {
	pageSize = max(pageSize, 1)
	var (
		pageStart int
		page      []*message.Msg
	)
	return func(index int) *message.Msg {
		if i := index - pageStart; i >= 0 && i < len(page) {
			return page[i]
		}
		start := max(index-pageSize+1, 0)
		msgs, err := s.Range(ctx, start, index+1)
		if err == nil && index >= start && index-start < len(msgs) {
			pageStart, page = start, msgs
			s.log.Debugw("loaded page", "start", start, "count", len(msgs))
			return page[index-start]
		}
		if err == nil {
			err = fmt.Errorf("%w: index %d", ErrNotFound, index)
		}
		s.log.Warnw("failed to load message", "index", index, "error", err)
		return message.NewSystem(fmt.Sprintf("missing-%d", index), "message unavailable", time.Time{})
	}
}

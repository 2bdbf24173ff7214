// Package history persists REPL input in a SQLite database so it survives
// across sessions.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

var log = commonlog.GetLogger("monkey.history")

// Outcome of evaluating an entry.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT    NOT NULL,
	input      TEXT    NOT NULL,
	outcome    TEXT    NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS entries_session ON entries(session_id);
`

// Entry is one stored REPL input.
type Entry struct {
	ID        int64
	SessionID string
	Input     string
	Outcome   string
	CreatedAt time.Time
}

// Store is a history database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history %s: %w", path, err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history %s: %w", path, err)
	}
	log.Debugf("opened history %s", path)
	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Append records one input.
func (s *Store) Append(ctx context.Context, sessionID, input, outcome string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (session_id, input, outcome, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, input, outcome, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	return nil
}

// Recent returns up to n of the newest entries, oldest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, input, outcome, created_at FROM entries ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Input, &e.Outcome, &created); err != nil {
			return nil, fmt.Errorf("reading history: %w", err)
		}
		e.CreatedAt = time.Unix(0, created)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Trim deletes all but the newest limit entries and reports how many
// were removed.
func (s *Store) Trim(ctx context.Context, limit int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM entries WHERE id NOT IN (SELECT id FROM entries ORDER BY id DESC LIMIT ?)`, limit)
	if err != nil {
		return 0, fmt.Errorf("trimming history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("trimming history: %w", err)
	}
	if n > 0 {
		log.Debugf("trimmed %d history entries", n)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

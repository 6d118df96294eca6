// Package recent remembers which capture sessions were inspected, so they
// can be listed and reopened. Captured requests themselves are never
// stored.
package recent

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var ErrInvalidSession = errors.New("server and key are required")

// tsLayout is fixed width so last_opened sorts as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Session is one remembered inspect target.
type Session struct {
	Server     string
	Key        string
	Opens      int
	LastOpened time.Time
}

// Store manages the recent sessions database.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the store at dbPath. ":memory:" is accepted.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sessions db: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			server      TEXT NOT NULL,
			key         TEXT NOT NULL,
			opens       INTEGER NOT NULL DEFAULT 0,
			last_opened TEXT NOT NULL,
			PRIMARY KEY (server, key)
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_last_opened ON sessions(last_opened DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}
	return nil
}

// Touch records that key on server was opened at the given time.
func (s *Store) Touch(server, key string, at time.Time) error {
	if server == "" || key == "" {
		return ErrInvalidSession
	}
	_, err := s.db.Exec(`
		INSERT INTO sessions (server, key, opens, last_opened)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(server, key) DO UPDATE SET
			opens = opens + 1,
			last_opened = excluded.last_opened`,
		server, key, at.UTC().Format(tsLayout),
	)
	if err != nil {
		return fmt.Errorf("recording session: %w", err)
	}
	return nil
}

// List returns up to limit sessions, most recently opened first.
func (s *Store) List(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT server, key, opens, last_opened
		FROM sessions
		ORDER BY last_opened DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var ts string
		if err := rows.Scan(&sess.Server, &sess.Key, &sess.Opens, &ts); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sess.LastOpened, _ = time.Parse(tsLayout, ts)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Clear forgets every session.
func (s *Store) Clear() error {
	_, err := s.db.Exec("DELETE FROM sessions")
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

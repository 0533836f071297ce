// Package transcript archives chat sessions to a SQLite database. The archive
// is write-only from the chat's point of view; sessions never resume from it.
package transcript

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/user/trialchat/internal/llmtypes"
)

// Store writes sessions and messages to SQLite
type Store struct {
	db *sql.DB
}

// SessionRecord is one archived session
type SessionRecord struct {
	ID        string
	Provider  string
	Model     string
	StartedAt time.Time
	Messages  int
}

// MessageRecord is one archived message
type MessageRecord struct {
	Seq       int
	Kind      llmtypes.MessageKind
	Name      string
	CallID    string
	Content   string
	CreatedAt time.Time
}

// Open opens (or creates) the archive at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create transcript directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		seq INTEGER NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		call_id TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (session_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// StartSession records a new session
func (s *Store) StartSession(ctx context.Context, id, provider, model string, started time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, provider, model, started_at) VALUES (?, ?, ?, ?)`,
		id, provider, model, started.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// AppendMessage records msg at position seq of the session. Writing the
// same position twice keeps the first write.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, seq int, msg llmtypes.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO messages (session_id, seq, kind, name, call_id, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, seq, string(msg.Kind), msg.Name, msg.CallID, msg.Content, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListSessions returns archived sessions, most recent first
func (s *Store) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.provider, s.model, s.started_at, COUNT(m.seq)
		FROM sessions s LEFT JOIN messages m ON m.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(&rec.ID, &rec.Provider, &rec.Model, &rec.StartedAt, &rec.Messages); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ErrSessionNotFound is returned by Session for an unknown id
var ErrSessionNotFound = errors.New("session not found")

// Session returns one archived session. An id prefix of at least eight
// characters is accepted when it matches a single session.
func (s *Store) Session(ctx context.Context, id string) (*SessionRecord, error) {
	// compared as text so the id is never read as a LIKE pattern
	prefixLen := len(id)
	if prefixLen < 8 {
		prefixLen = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.provider, s.model, s.started_at, COUNT(m.seq)
		FROM sessions s LEFT JOIN messages m ON m.session_id = s.id
		WHERE s.id = ?1 OR (?2 > 0 AND substr(s.id, 1, ?2) = ?1)
		GROUP BY s.id
		LIMIT 2`, id, prefixLen)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var found []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(&rec.ID, &rec.Provider, &rec.Model, &rec.StartedAt, &rec.Messages); err != nil {
			return nil, err
		}
		found = append(found, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, ErrSessionNotFound
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("session id %q is ambiguous", id)
	}
}

// Messages returns the archived messages of a session in order
func (s *Store) Messages(ctx context.Context, sessionID string) ([]MessageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, name, call_id, content, created_at
		FROM messages WHERE session_id = ?
		ORDER BY seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []MessageRecord
	for rows.Next() {
		var rec MessageRecord
		var kind string
		if err := rows.Scan(&rec.Seq, &kind, &rec.Name, &rec.CallID, &rec.Content, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Kind = llmtypes.MessageKind(kind)
		out = append(out, rec)
	}
	return out, rows.Err()
}

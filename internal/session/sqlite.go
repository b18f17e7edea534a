package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
	now func() time.Time
}

// Schema for the sessions database.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    model TEXT NOT NULL,
    system_prompt TEXT,
    summary TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    status TEXT DEFAULT 'active',
    generations INTEGER DEFAULT 0,
    prompt_tokens INTEGER DEFAULT 0,
    completion_tokens INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    role TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'system', 'tool')),
    name TEXT,
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    sequence INTEGER NOT NULL,
    UNIQUE (session_id, sequence)
);

CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id, sequence);
`

// schemaVersion is the current schema version, stored in PRAGMA user_version.
const schemaVersion = 1

// NewSQLiteStore opens (creating if needed) the session database at path.
func NewSQLiteStore(path string, cfg Config) (*SQLiteStore, error) {
	// Ensure directory exists
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	store := &SQLiteStore{db: db, cfg: cfg, now: time.Now}

	// Run cleanup if configured
	if err := store.cleanup(); err != nil {
		// Log but don't fail
		slog.Warn("session cleanup failed", "path", path, "error", err)
	}

	return store, nil
}

func initSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, schemaVersion)
	}
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	if version < schemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	}
	return nil
}

// cleanup removes old sessions based on configuration.
func (s *SQLiteStore) cleanup() error {
	if s.cfg.MaxAgeDays <= 0 {
		return nil
	}
	cutoff := s.now().UTC().AddDate(0, 0, -s.cfg.MaxAgeDays)
	_, err := s.db.Exec("DELETE FROM sessions WHERE updated_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("delete old sessions: %w", err)
	}
	return nil
}

// Create inserts a new session.
func (s *SQLiteStore) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = NewID()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now().UTC()
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = sess.CreatedAt
	}
	if sess.Status == "" {
		sess.Status = StatusActive
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, model, system_prompt, summary, created_at, updated_at, status,
		                      generations, prompt_tokens, completion_tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Model, nullString(sess.SystemPrompt), nullString(sess.Summary),
		sess.CreatedAt, sess.UpdatedAt, string(sess.Status),
		sess.Generations, sess.PromptTokens, sess.CompletionTokens)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

const sessionColumns = `id, model, system_prompt, summary, created_at, updated_at, status,
		       generations, prompt_tokens, completion_tokens`

// Get retrieves a session by ID. A missing session is (nil, nil).
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// Latest returns the most recently updated session, or nil when there is none.
func (s *SQLiteStore) Latest(ctx context.Context) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY updated_at DESC LIMIT 1`)
	return scanSession(row)
}

func scanSession(row *sql.Row) (*Session, error) {
	var sess Session
	var system, summary, status sql.NullString
	err := row.Scan(&sess.ID, &sess.Model, &system, &summary, &sess.CreatedAt, &sess.UpdatedAt,
		&status, &sess.Generations, &sess.PromptTokens, &sess.CompletionTokens)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	sess.SystemPrompt = system.String
	sess.Summary = summary.String
	if status.Valid {
		sess.Status = SessionStatus(status.String)
	}
	return &sess, nil
}

// Delete removes a session and its messages.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("session not found: %s", id)
	}
	return nil
}

// ReplaceMessages atomically swaps the stored history of a session for msgs.
// Sequences are renumbered from 0 in slice order.
func (s *SQLiteStore) ReplaceMessages(ctx context.Context, sessionID string, msgs []Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	now := s.now().UTC()
	var summary string
	for i := range msgs {
		msg := &msgs[i]
		msg.SessionID = sessionID
		msg.Sequence = i
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = now
		}
		if summary == "" && msg.Role == "user" {
			summary = TruncateSummary(msg.Content)
		}
		result, err := tx.ExecContext(ctx, `
			INSERT INTO messages (session_id, role, name, content, created_at, sequence)
			VALUES (?, ?, ?, ?, ?, ?)`,
			sessionID, string(msg.Role), nullString(msg.Name), msg.Content, msg.CreatedAt, msg.Sequence)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		msg.ID, _ = result.LastInsertId()
	}

	result, err := tx.ExecContext(ctx,
		"UPDATE sessions SET updated_at = ?, summary = COALESCE(summary, ?) WHERE id = ?",
		now, nullString(summary), sessionID)
	if err != nil {
		return fmt.Errorf("update session timestamp: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("session not found: %s", sessionID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetMessages retrieves the messages of a session in order.
func (s *SQLiteStore) GetMessages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, name, content, created_at, sequence
		FROM messages
		WHERE session_id = ?
		ORDER BY sequence ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var name sql.NullString
		err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &name,
			&msg.Content, &msg.CreatedAt, &msg.Sequence)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Name = name.String
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// UpdateMetrics adds to the metrics fields (used for incremental saves).
func (s *SQLiteStore) UpdateMetrics(ctx context.Context, id string, generations, promptTokens, completionTokens int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET
		       generations = generations + ?,
		       prompt_tokens = prompt_tokens + ?,
		       completion_tokens = completion_tokens + ?,
		       updated_at = ?
		WHERE id = ?`,
		generations, promptTokens, completionTokens, s.now().UTC(), id)
	return err
}

// UpdateStatus updates just the session status.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status SessionStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), s.now().UTC(), id)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// nullString converts an empty string to NULL for database storage.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

package session

import (
	"context"
)

// Store is the interface for session persistence.
type Store interface {
	// Session CRUD
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Latest(ctx context.Context) (*Session, error)
	Delete(ctx context.Context, id string) error

	// ReplaceMessages stores msgs as the full history of the session.
	ReplaceMessages(ctx context.Context, sessionID string, msgs []Message) error
	GetMessages(ctx context.Context, sessionID string) ([]Message, error)

	// Metrics operations (for incremental session saving)
	UpdateMetrics(ctx context.Context, id string, generations, promptTokens, completionTokens int) error
	UpdateStatus(ctx context.Context, id string, status SessionStatus) error

	// Lifecycle
	Close() error
}

// Config holds session storage configuration.
type Config struct {
	MaxAgeDays int // Auto-delete after N days (0=never)
}

// NewStore opens the store at path. An empty path returns a no-op store.
func NewStore(path string, cfg Config) (Store, error) {
	if path == "" {
		return &NoopStore{}, nil
	}
	return NewSQLiteStore(path, cfg)
}

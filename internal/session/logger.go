package session

import (
	"context"
	"log/slog"
	"sync"
)

// LoggingStore wraps a Store and logs write failures once per operation.
// Callers still receive the error.
type LoggingStore struct {
	Store
	logger *slog.Logger
	mu     sync.Mutex
	warned map[string]bool // Rate-limit warnings by operation type
}

// NewLoggingStore creates a new LoggingStore wrapper. A nil logger uses slog.Default.
func NewLoggingStore(store Store, logger *slog.Logger) *LoggingStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingStore{
		Store:  store,
		logger: logger,
		warned: make(map[string]bool),
	}
}

// logOnce logs a warning only once per operation type to avoid spamming.
func (s *LoggingStore) logOnce(op string, err error) {
	if err == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.warned[op] {
		return
	}
	s.warned[op] = true
	s.logger.Warn("session store operation failed", "op", op, "error", err)
}

// Create wraps Store.Create with error logging.
func (s *LoggingStore) Create(ctx context.Context, sess *Session) error {
	err := s.Store.Create(ctx, sess)
	s.logOnce("Create", err)
	return err
}

// ReplaceMessages wraps Store.ReplaceMessages with error logging.
func (s *LoggingStore) ReplaceMessages(ctx context.Context, sessionID string, msgs []Message) error {
	err := s.Store.ReplaceMessages(ctx, sessionID, msgs)
	s.logOnce("ReplaceMessages", err)
	return err
}

// UpdateMetrics wraps Store.UpdateMetrics with error logging.
func (s *LoggingStore) UpdateMetrics(ctx context.Context, id string, generations, promptTokens, completionTokens int) error {
	err := s.Store.UpdateMetrics(ctx, id, generations, promptTokens, completionTokens)
	s.logOnce("UpdateMetrics", err)
	return err
}

// UpdateStatus wraps Store.UpdateStatus with error logging.
func (s *LoggingStore) UpdateStatus(ctx context.Context, id string, status SessionStatus) error {
	err := s.Store.UpdateStatus(ctx, id, status)
	s.logOnce("UpdateStatus", err)
	return err
}

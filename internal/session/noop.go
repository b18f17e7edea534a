package session

import "context"

// NoopStore is a Store that keeps nothing.
type NoopStore struct{}

func (s *NoopStore) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = NewID()
	}
	return nil
}

func (s *NoopStore) Get(ctx context.Context, id string) (*Session, error) {
	return nil, nil
}

func (s *NoopStore) Latest(ctx context.Context) (*Session, error) {
	return nil, nil
}

func (s *NoopStore) Delete(ctx context.Context, id string) error {
	return nil
}

func (s *NoopStore) ReplaceMessages(ctx context.Context, sessionID string, msgs []Message) error {
	return nil
}

func (s *NoopStore) GetMessages(ctx context.Context, sessionID string) ([]Message, error) {
	return nil, nil
}

func (s *NoopStore) UpdateMetrics(ctx context.Context, id string, generations, promptTokens, completionTokens int) error {
	return nil
}

func (s *NoopStore) UpdateStatus(ctx context.Context, id string, status SessionStatus) error {
	return nil
}

func (s *NoopStore) Close() error {
	return nil
}

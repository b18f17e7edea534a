package session

import (
	"context"
	"fmt"

	"github.com/samsaffron/bizarro/internal/llm"
)

// Recorder persists one chat conversation to a Store.
type Recorder struct {
	store Store
	sess  *Session
}

// Resume continues the most recent session in store, or starts a new one
// when the store is empty. The returned messages are the saved history
// (without the system prompt) and are empty for a new session.
func Resume(ctx context.Context, store Store, model, systemPrompt string) (*Recorder, []llm.Message, error) {
	sess, err := store.Latest(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load latest session: %w", err)
	}
	if sess == nil {
		sess = &Session{Model: model, SystemPrompt: systemPrompt}
		if err := store.Create(ctx, sess); err != nil {
			return nil, nil, err
		}
		return &Recorder{store: store, sess: sess}, nil, nil
	}

	stored, err := store.GetMessages(ctx, sess.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load messages: %w", err)
	}
	var history []llm.Message
	for i := range stored {
		if stored[i].Role == llm.RoleSystem {
			continue
		}
		history = append(history, stored[i].ToLLMMessage())
	}
	if err := store.UpdateStatus(ctx, sess.ID, StatusActive); err != nil {
		return nil, nil, fmt.Errorf("reactivate session: %w", err)
	}
	return &Recorder{store: store, sess: sess}, history, nil
}

// Session returns the session being recorded.
func (r *Recorder) Session() *Session {
	return r.sess
}

// OnTurnCompleted records the metrics of one generation. Its signature
// matches engine.TurnCompletedCallback.
func (r *Recorder) OnTurnCompleted(ctx context.Context, round int, messages []llm.Message, stats llm.GenerationStats) error {
	r.sess.Generations++
	r.sess.PromptTokens += stats.PromptTokens
	r.sess.CompletionTokens += stats.CompletionTokens
	return r.store.UpdateMetrics(ctx, r.sess.ID, 1, stats.PromptTokens, stats.CompletionTokens)
}

// Save stores msgs as the session's full history and marks its status.
func (r *Recorder) Save(ctx context.Context, msgs []llm.Message, status SessionStatus) error {
	stored := make([]Message, 0, len(msgs))
	for i, m := range msgs {
		stored = append(stored, *NewMessage(r.sess.ID, m, i))
	}
	if err := r.store.ReplaceMessages(ctx, r.sess.ID, stored); err != nil {
		return err
	}
	if err := r.store.UpdateStatus(ctx, r.sess.ID, status); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	r.sess.Status = status
	return nil
}

package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/samsaffron/bizarro/internal/llm"
)

func newTestStore(t *testing.T, cfg Config) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "chat.db"), cfg)
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreCreateAndGet(t *testing.T) {
	store := newTestStore(t, Config{})
	ctx := context.Background()

	sess := &Session{Model: "Qwen/Qwen3-0.6B", SystemPrompt: "Be brief."}
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected an id to be assigned")
	}

	loaded, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected session to exist")
	}
	if loaded.Model != "Qwen/Qwen3-0.6B" || loaded.SystemPrompt != "Be brief." {
		t.Errorf("unexpected session: %+v", loaded)
	}
	if loaded.Status != StatusActive {
		t.Errorf("expected status active, got %q", loaded.Status)
	}

	missing, err := store.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("expected (nil, nil) for a missing session, got %v, %v", missing, err)
	}
}

func TestSQLiteStoreMessagesRoundTrip(t *testing.T) {
	store := newTestStore(t, Config{})
	ctx := context.Background()

	sess := &Session{Model: "m"}
	if err := store.Create(ctx, sess); err != nil {
		t.Fatal(err)
	}

	msgs := []Message{
		*NewMessage(sess.ID, llm.UserText("What is 2+2?\nThanks"), 0),
		*NewMessage(sess.ID, llm.AssistantText(`<tool_call>{"name":"calculator"}</tool_call>`), 1),
		*NewMessage(sess.ID, llm.ToolResultMessage("calculator", "4"), 2),
		*NewMessage(sess.ID, llm.AssistantText("4"), 3),
	}
	if err := store.ReplaceMessages(ctx, sess.ID, msgs); err != nil {
		t.Fatalf("ReplaceMessages: %v", err)
	}

	got, err := store.GetMessages(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(got))
	}
	if got[2].Role != llm.RoleTool || got[2].Name != "calculator" || got[2].Content != "4" {
		t.Errorf("tool message not preserved: %+v", got[2])
	}
	for i, m := range got {
		if m.Sequence != i {
			t.Errorf("message %d has sequence %d", i, m.Sequence)
		}
	}

	loaded, _ := store.Get(ctx, sess.ID)
	if loaded.Summary != "What is 2+2?" {
		t.Errorf("summary=%q", loaded.Summary)
	}

	// a second save replaces rather than appends
	if err := store.ReplaceMessages(ctx, sess.ID, msgs[:1]); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetMessages(ctx, sess.ID)
	if len(got) != 1 {
		t.Errorf("expected history to be replaced, got %d messages", len(got))
	}
}

func TestSQLiteStoreReplaceMessagesUnknownSession(t *testing.T) {
	store := newTestStore(t, Config{})
	err := store.ReplaceMessages(context.Background(), "missing", []Message{{Role: llm.RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestSQLiteStoreLatestAndMetrics(t *testing.T) {
	store := newTestStore(t, Config{})
	ctx := context.Background()

	latest, err := store.Latest(ctx)
	if err != nil || latest != nil {
		t.Fatalf("empty store: got %v, %v", latest, err)
	}

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	older := &Session{Model: "m", CreatedAt: base}
	newer := &Session{Model: "m", CreatedAt: base.Add(time.Hour)}
	for _, s := range []*Session{older, newer} {
		if err := store.Create(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	latest, err = store.Latest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != newer.ID {
		t.Errorf("expected newest session, got %s", latest.ID)
	}

	if err := store.UpdateMetrics(ctx, newer.ID, 2, 120, 30); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateMetrics(ctx, newer.ID, 1, 80, 10); err != nil {
		t.Fatal(err)
	}
	loaded, _ := store.Get(ctx, newer.ID)
	if loaded.Generations != 3 || loaded.PromptTokens != 200 || loaded.CompletionTokens != 40 {
		t.Errorf("metrics not accumulated: %+v", loaded)
	}
}

func TestSQLiteStoreDeleteCascades(t *testing.T) {
	store := newTestStore(t, Config{})
	ctx := context.Background()

	sess := &Session{Model: "m"}
	if err := store.Create(ctx, sess); err != nil {
		t.Fatal(err)
	}
	if err := store.ReplaceMessages(ctx, sess.ID, []Message{*NewMessage(sess.ID, llm.UserText("hi"), 0)}); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatal(err)
	}
	msgs, err := store.GetMessages(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected messages to be deleted, got %d", len(msgs))
	}
	if err := store.Delete(ctx, sess.ID); err == nil {
		t.Error("expected error deleting a missing session")
	}
}

func TestSQLiteStoreCleanup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path, Config{})
	if err != nil {
		t.Fatal(err)
	}
	old := &Session{Model: "m", CreatedAt: time.Now().UTC().AddDate(0, 0, -60)}
	fresh := &Session{Model: "m"}
	for _, s := range []*Session{old, fresh} {
		if err := store.Create(ctx, s); err != nil {
			t.Fatal(err)
		}
	}
	store.Close()

	store, err = NewSQLiteStore(path, Config{MaxAgeDays: 30})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if s, _ := store.Get(ctx, old.ID); s != nil {
		t.Error("expected old session to be cleaned up")
	}
	if s, _ := store.Get(ctx, fresh.ID); s == nil {
		t.Error("expected fresh session to survive cleanup")
	}
}

func TestNewStoreWithoutPathIsNoop(t *testing.T) {
	store, err := NewStore("", Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*NoopStore); !ok {
		t.Fatalf("expected NoopStore, got %T", store)
	}
}

func TestRecorderResume(t *testing.T) {
	store := newTestStore(t, Config{})
	ctx := context.Background()

	rec, history, err := Resume(ctx, store, "m", "sys")
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("new session should have no history, got %d", len(history))
	}

	stats := llm.GenerationStats{PromptTokens: 50, CompletionTokens: 7}
	if err := rec.OnTurnCompleted(ctx, 0, nil, stats); err != nil {
		t.Fatal(err)
	}

	conv := llm.NewConversation(llm.SystemText("sys"), llm.UserText("hi"), llm.AssistantText("hello"))
	if err := rec.Save(ctx, conv.Messages(), StatusComplete); err != nil {
		t.Fatalf("Save: %v", err)
	}

	again, history, err := Resume(ctx, store, "m", "sys")
	if err != nil {
		t.Fatal(err)
	}
	if again.Session().ID != rec.Session().ID {
		t.Errorf("expected to resume the same session")
	}
	if len(history) != 2 || history[0].Content != "hi" || history[1].Content != "hello" {
		t.Errorf("unexpected history (system prompt must be dropped): %+v", history)
	}
	if again.Session().PromptTokens != 50 || again.Session().CompletionTokens != 7 {
		t.Errorf("metrics not persisted: %+v", again.Session())
	}
	loaded, _ := store.Get(ctx, rec.Session().ID)
	if loaded.Status != StatusActive {
		t.Errorf("resumed session should be active, got %q", loaded.Status)
	}
}

type failingStore struct {
	NoopStore
}

func (failingStore) ReplaceMessages(context.Context, string, []Message) error {
	return errors.New("disk full")
}

func TestLoggingStoreWarnsOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	store := NewLoggingStore(&failingStore{}, logger)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := store.ReplaceMessages(ctx, "id", nil); err == nil {
			t.Fatal("expected error to be returned to the caller")
		}
	}
	if n := strings.Count(buf.String(), "session store operation failed"); n != 1 {
		t.Errorf("expected one warning, got %d:\n%s", n, buf.String())
	}
	if !strings.Contains(buf.String(), "op=ReplaceMessages") {
		t.Errorf("warning should name the operation: %s", buf.String())
	}
}

func TestTruncateSummary(t *testing.T) {
	if got := TruncateSummary("  first line\nsecond"); got != "first line" {
		t.Errorf("got %q", got)
	}
	long := strings.Repeat("a", 150)
	if got := TruncateSummary(long); len(got) != 100 || !strings.HasSuffix(got, "...") {
		t.Errorf("got %q (%d)", got, len(got))
	}
}

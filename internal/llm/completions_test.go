package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"
	"go.uber.org/goleak"
)

func sseChunk(text string) string {
	return fmt.Sprintf(`data: {"id":"cmpl-1","object":"text_completion","created":1,"model":"m","choices":[{"index":0,"text":%q,"finish_reason":null}]}`+"\n\n", text)
}

func TestCompletionsSource_StreamsFragments(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseChunk("<think>"))
		io.WriteString(w, sseChunk("Hel"))
		io.WriteString(w, sseChunk("lo"))
		io.WriteString(w, `data: {"id":"cmpl-1","object":"text_completion","created":1,"model":"m","choices":[],"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}}`+"\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	src := NewCompletionsSource(srv.URL+"/v1", "", "qwen", option.WithMaxRetries(0))
	stream, err := src.Generate(context.Background(), Request{
		Prompt:    "hi",
		MaxTokens: 5,
		Cache:     &Cache{Enabled: true},
	})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	var texts []string
	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv() error: %v", err)
		}
		texts = append(texts, frag.Text)
	}
	if err := stream.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	if got := strings.Join(texts, "|"); got != "<think>|Hel|lo" {
		t.Errorf("fragments = %q, want %q", got, "<think>|Hel|lo")
	}
	reporter, ok := stream.(UsageReporter)
	if !ok {
		t.Fatal("expected stream to report usage")
	}
	if n, ok := reporter.PromptTokens(); !ok || n != 12 {
		t.Errorf("PromptTokens() = %d, %v; want 12, true", n, ok)
	}

	if body["model"] != "qwen" {
		t.Errorf("model = %v, want qwen", body["model"])
	}
	if body["prompt"] != "hi" {
		t.Errorf("prompt = %v, want hi", body["prompt"])
	}
	if body["cache_prompt"] != true {
		t.Errorf("expected cache_prompt=true, got %v", body["cache_prompt"])
	}
	if body["stream"] != true {
		t.Errorf("expected stream=true, got %v", body["stream"])
	}
}

func TestCompletionsSource_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"model not loaded"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewCompletionsSource(srv.URL+"/v1", "", "qwen", option.WithMaxRetries(0))
	stream, err := src.Generate(context.Background(), Request{Prompt: "hi"})
	if err == nil {
		stream.Close()
		t.Fatal("expected error from failing server")
	}
}

func TestCompletionsSource_EmptyPrompt(t *testing.T) {
	src := NewCompletionsSource("http://127.0.0.1:1/v1", "", "qwen")
	if _, err := src.Generate(context.Background(), Request{}); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/samsaffron/bizarro/internal/llm"
	"github.com/samsaffron/bizarro/internal/stream"
	"github.com/samsaffron/bizarro/internal/testutil"
	"github.com/samsaffron/bizarro/internal/tools"
)

const calcCall = `<tool_call>{"name": "calculator", "arguments": {"expression": "2+2"}}</tool_call>`

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

// delayedSource advances the clock before the first fragment of each
// generation, giving every sub-turn a distinct time to first token.
type delayedSource struct {
	inner  *testutil.ScriptedSource
	clock  *fakeClock
	delays []time.Duration
	calls  int
}

func (s *delayedSource) Name() string { return "delayed" }

func (s *delayedSource) Generate(ctx context.Context, req llm.Request) (llm.FragmentStream, error) {
	fs, err := s.inner.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	d := s.delays[s.calls]
	s.calls++
	return &delayedStream{FragmentStream: fs, clock: s.clock, delay: d}, nil
}

type delayedStream struct {
	llm.FragmentStream
	clock   *fakeClock
	delay   time.Duration
	started bool
}

func (d *delayedStream) Recv() (llm.Fragment, error) {
	if !d.started {
		d.clock.now = d.clock.now.Add(d.delay)
		d.started = true
	}
	return d.FragmentStream.Recv()
}

func newEngine(src llm.Source, sink stream.Sink) *Engine {
	return New(src, llm.ChatMLRenderer{}, tools.DefaultRegistry(), sink)
}

func TestRunTurn_NoTools(t *testing.T) {
	src := testutil.NewScriptedSource([]string{"<think>", "hmm", "</think>", "Hello", " there"})
	sink := &testutil.RecordingSink{}
	conv := llm.NewConversation(llm.UserText("hi"))

	stats, err := newEngine(src, sink).RunTurn(context.Background(), conv, Options{Label: true})
	if err != nil {
		t.Fatalf("RunTurn() error: %v", err)
	}

	msgs := conv.Messages()
	if len(msgs) != 2 || msgs[1].Role != llm.RoleAssistant || msgs[1].Content != "Hello there" {
		t.Fatalf("conversation = %+v", msgs)
	}
	if stats.CompletionTokens != 5 {
		t.Errorf("CompletionTokens = %d, want 5", stats.CompletionTokens)
	}
	if sink.VisibleText() != "Hello there" {
		t.Errorf("visible = %q", sink.VisibleText())
	}
	if sink.Events[len(sink.Events)-1] != "newline" {
		t.Errorf("expected trailing newline after visible output, got %v", sink.Events)
	}
	if len(src.Requests()) != 1 {
		t.Errorf("expected 1 generation, got %d", len(src.Requests()))
	}
	for _, fs := range src.Streams() {
		if !fs.Closed() {
			t.Error("stream was not closed")
		}
	}
}

func TestRunTurn_ExecutesToolAndFollowsUp(t *testing.T) {
	src := testutil.NewScriptedSource(
		[]string{calcCall},
		[]string{"The answer is 4."},
	)
	conv := llm.NewConversation(llm.UserText("What is 2+2?"))

	_, err := newEngine(src, &testutil.RecordingSink{}).RunTurn(context.Background(), conv, Options{ToolsEnabled: true})
	if err != nil {
		t.Fatalf("RunTurn() error: %v", err)
	}

	msgs := conv.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %+v", msgs)
	}
	tool := msgs[1]
	if tool.Role != llm.RoleTool || tool.Name != "calculator" || tool.Content != "4" {
		t.Errorf("tool message = %+v", tool)
	}
	if msgs[2].Role != llm.RoleAssistant || msgs[2].Content != "The answer is 4." {
		t.Errorf("final message = %+v", msgs[2])
	}

	reqs := src.Requests()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 generations, got %d", len(reqs))
	}
	if !strings.Contains(reqs[0].Prompt, "<tools>") {
		t.Error("tool schemas missing from prompt")
	}
	if !strings.Contains(reqs[1].Prompt, "<tool_response>\n4\n</tool_response>") {
		t.Errorf("follow-up prompt missing tool response:\n%s", reqs[1].Prompt)
	}
}

func TestRunTurn_MergesStatsAcrossToolRounds(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	src := &delayedSource{
		inner: testutil.NewScriptedSource(
			[]string{"<tool_call>", `{"name": "calculator", "arguments": {"expression": "1+1"}}`, "</tool_call>"},
			[]string{`<tool_call>{"name": "get_current_time", "arguments": {"timezone": "utc"}}</tool_call>`},
			[]string{"Done", "."},
		),
		clock:  clock,
		delays: []time.Duration{100 * time.Millisecond, 150 * time.Millisecond, 250 * time.Millisecond},
	}
	e := newEngine(src, &testutil.RecordingSink{})
	e.SetClock(clock.Now)

	conv := llm.NewConversation(llm.UserText("go"))
	stats, err := e.RunTurn(context.Background(), conv, Options{ToolsEnabled: true})
	if err != nil {
		t.Fatalf("RunTurn() error: %v", err)
	}

	if stats.CompletionTokens != 6 {
		t.Errorf("CompletionTokens = %d, want 6", stats.CompletionTokens)
	}
	if stats.TimeToFirstToken != 100*time.Millisecond {
		t.Errorf("TimeToFirstToken = %v, want first sub-turn's 100ms", stats.TimeToFirstToken)
	}
	if stats.TotalTime != 500*time.Millisecond {
		t.Errorf("TotalTime = %v, want 500ms", stats.TotalTime)
	}
	if stats.TokensPerSecond != 12 {
		t.Errorf("TokensPerSecond = %v, want 12", stats.TokensPerSecond)
	}
	if conv.Len() != 4 {
		t.Errorf("expected user, 2 tool results and answer, got %+v", conv.Messages())
	}
}

func TestRunTurn_UnknownToolBecomesToolMessage(t *testing.T) {
	src := testutil.NewScriptedSource(
		[]string{`<tool_call>{"name": "weather"}</tool_call>`},
		[]string{"Sorry, I can't check the weather."},
	)
	conv := llm.NewConversation(llm.UserText("weather?"))

	if _, err := newEngine(src, nil).RunTurn(context.Background(), conv, Options{ToolsEnabled: true}); err != nil {
		t.Fatalf("RunTurn() error: %v", err)
	}
	tool := conv.Messages()[1]
	if tool.Role != llm.RoleTool || tool.Name != "weather" {
		t.Fatalf("tool message = %+v", tool)
	}
	if !strings.HasPrefix(tool.Content, "Tool 'weather' not found. Available tools: calculator, get_current_time") {
		t.Errorf("content = %q", tool.Content)
	}
}

func TestRunTurn_ToolFailureBecomesToolMessage(t *testing.T) {
	src := testutil.NewScriptedSource(
		[]string{`<tool_call>{"name": "flaky"}</tool_call>`},
		[]string{"It failed."},
	)
	registry := tools.NewRegistry()
	flaky := testutil.NewFailingMockTool("flaky", errors.New("timeout"))
	registry.Register(flaky)

	conv := llm.NewConversation(llm.UserText("x"))
	e := New(src, llm.ChatMLRenderer{}, registry, nil)
	if _, err := e.RunTurn(context.Background(), conv, Options{ToolsEnabled: true}); err != nil {
		t.Fatalf("RunTurn() error: %v", err)
	}
	if got := conv.Messages()[1].Content; got != "Error executing flaky: timeout" {
		t.Errorf("content = %q", got)
	}
	if len(flaky.Invocations) != 1 {
		t.Errorf("expected 1 invocation, got %d", len(flaky.Invocations))
	}
}

func TestRunTurn_ToolsDisabledLeavesMarkup(t *testing.T) {
	src := testutil.NewScriptedSource([]string{calcCall})
	conv := llm.NewConversation(llm.UserText("x"))

	if _, err := newEngine(src, nil).RunTurn(context.Background(), conv, Options{}); err != nil {
		t.Fatalf("RunTurn() error: %v", err)
	}
	if len(src.Requests()) != 1 {
		t.Errorf("tools disabled should not trigger a follow-up")
	}
	if strings.Contains(src.Requests()[0].Prompt, "<tools>") {
		t.Error("tool schemas should not be rendered when tools are disabled")
	}
	last, _ := conv.Last()
	if last.Content != calcCall {
		t.Errorf("assistant content = %q", last.Content)
	}
}

func TestRunTurn_TooManyToolCalls(t *testing.T) {
	turns := make([][]string, 4)
	for i := range turns {
		turns[i] = []string{calcCall}
	}
	src := testutil.NewScriptedSource(turns...)
	conv := llm.NewConversation(llm.UserText("loop"))

	stats, err := newEngine(src, nil).RunTurn(context.Background(), conv, Options{ToolsEnabled: true, MaxToolTurns: 2})
	if !errors.Is(err, ErrTooManyToolCalls) {
		t.Fatalf("expected ErrTooManyToolCalls, got %v", err)
	}
	if len(src.Requests()) != 3 {
		t.Errorf("expected 3 generations, got %d", len(src.Requests()))
	}
	if stats.CompletionTokens != 3 {
		t.Errorf("stats should cover every generation, got %d", stats.CompletionTokens)
	}
	// two rounds of tool results, then the loop stops
	if conv.Len() != 3 {
		t.Errorf("conversation = %+v", conv.Messages())
	}
}

func TestRunTurn_SourceError(t *testing.T) {
	boom := errors.New("server down")
	src := testutil.NewScriptedSource([]string{"unused"})
	src.FailAt = 0
	src.Err = boom
	conv := llm.NewConversation(llm.UserText("x"))

	_, err := newEngine(src, nil).RunTurn(context.Background(), conv, Options{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}
	if conv.Len() != 1 {
		t.Errorf("conversation should be untouched, got %+v", conv.Messages())
	}
}

func TestRunTurn_PromptTokens(t *testing.T) {
	src := testutil.NewScriptedSource([]string{"ok"})
	stats, err := newEngine(src, nil).RunTurn(context.Background(), llm.NewConversation(llm.UserText("hello")), Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := llm.EstimateTokens(src.Requests()[0].Prompt)
	if stats.PromptTokens != want {
		t.Errorf("PromptTokens = %d, want estimate %d", stats.PromptTokens, want)
	}

	reported := testutil.NewScriptedSource([]string{"ok"})
	reported.PromptTokens = 42
	stats, err = newEngine(reported, nil).RunTurn(context.Background(), llm.NewConversation(llm.UserText("hello")), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.PromptTokens != 42 {
		t.Errorf("PromptTokens = %d, want server-reported 42", stats.PromptTokens)
	}
}

type recordingObserver struct {
	started  []string
	finished []tools.Result
}

func (r *recordingObserver) ToolStarted(call llm.ToolCall) { r.started = append(r.started, call.Name) }
func (r *recordingObserver) ToolFinished(result tools.Result) { r.finished = append(r.finished, result) }

func TestRunTurn_ObserverAndCallback(t *testing.T) {
	src := testutil.NewScriptedSource([]string{"Checking. ", calcCall}, []string{"4."})
	e := newEngine(src, nil)
	obs := &recordingObserver{}
	e.SetToolObserver(obs)

	var rounds []int
	var counts []int
	e.SetTurnCompletedCallback(func(ctx context.Context, round int, msgs []llm.Message, stats llm.GenerationStats) error {
		rounds = append(rounds, round)
		counts = append(counts, len(msgs))
		return nil
	})

	conv := llm.NewConversation(llm.UserText("2+2"))
	if _, err := e.RunTurn(context.Background(), conv, Options{ToolsEnabled: true}); err != nil {
		t.Fatal(err)
	}

	if len(obs.started) != 1 || obs.started[0] != "calculator" {
		t.Errorf("started = %v", obs.started)
	}
	if len(obs.finished) != 1 || obs.finished[0].Content != "4" {
		t.Errorf("finished = %+v", obs.finished)
	}
	// round 0 appends the assistant text and the tool result; round 1 the answer
	if len(rounds) != 2 || counts[0] != 2 || counts[1] != 1 {
		t.Errorf("rounds = %v, counts = %v", rounds, counts)
	}
	if got := conv.Messages()[1].Content; got != "Checking." {
		t.Errorf("assistant text = %q, want tool markup stripped", got)
	}
}

func TestRunTurn_CallbackErrorStopsTurn(t *testing.T) {
	src := testutil.NewScriptedSource([]string{"hi"})
	e := newEngine(src, nil)
	boom := errors.New("disk full")
	e.SetTurnCompletedCallback(func(context.Context, int, []llm.Message, llm.GenerationStats) error { return boom })

	_, err := e.RunTurn(context.Background(), llm.NewConversation(llm.UserText("x")), Options{})
	if !errors.Is(err, boom) {
		t.Errorf("expected callback error, got %v", err)
	}
}

func TestRunTurn_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := testutil.NewScriptedSource([]string{"x"})

	_, err := newEngine(src, nil).RunTurn(ctx, llm.NewConversation(llm.UserText("x")), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(src.Requests()) != 0 {
		t.Error("no generation should start after cancellation")
	}
}

package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/samsaffron/bizarro/internal/llm"
)

func plainStyles(buf *bytes.Buffer) *Styles {
	return NewStyledWithTheme(buf, DefaultTheme())
}

func TestFormatCount(t *testing.T) {
	cases := map[int]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		12345:    "12,345",
		123456:   "123,456",
		1234567:  "1,234,567",
		-1234:    "-1,234",
		-123456:  "-123,456",
		10000000: "10,000,000",
	}
	for n, want := range cases {
		if got := FormatCount(n); got != want {
			t.Errorf("FormatCount(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestWriteGenerationStatsConcise(t *testing.T) {
	var buf bytes.Buffer
	st := llm.GenerationStats{
		PromptTokens:     12,
		CompletionTokens: 42,
		TotalTokens:      54,
		TotalTime:        2100 * time.Millisecond,
		TokensPerSecond:  20,
	}
	WriteGenerationStats(&buf, plainStyles(&buf), st, false)

	got := ansi.Strip(buf.String())
	want := "\n42 tokens in 2.1s (20.0 tokens/s)\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWriteGenerationStatsVerbose(t *testing.T) {
	var buf bytes.Buffer
	st := llm.GenerationStats{
		PromptTokens:     1234,
		CompletionTokens: 56,
		TotalTokens:      1290,
		TotalTime:        1500 * time.Millisecond,
		TimeToFirstToken: 125 * time.Millisecond,
		TokensPerSecond:  37.33,
	}
	WriteGenerationStats(&buf, plainStyles(&buf), st, true)

	got := ansi.Strip(buf.String())
	for _, want := range []string{
		Rule(),
		"Generation Statistics:",
		"Prompt tokens: 1,234",
		"Completion tokens: 56",
		"Total tokens: 1,290",
		"Time to first token: 0.125s",
		"Total time: 1.50s",
		"Tokens/second: 37.3",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("verbose stats missing %q in:\n%s", want, got)
		}
	}
}

func TestSessionSummary(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	stats := NewSessionStatsWithClock(clock)

	stats.AddTurn(llm.GenerationStats{PromptTokens: 1000, CompletionTokens: 30, TotalTokens: 1030, TotalTime: time.Second})
	stats.AddTurn(llm.GenerationStats{PromptTokens: 1500, CompletionTokens: 50, TotalTokens: 1550, TotalTime: 3 * time.Second})
	now = now.Add(10 * time.Second)

	var buf bytes.Buffer
	stats.WriteSummary(&buf, plainStyles(&buf))
	got := ansi.Strip(buf.String())

	for _, want := range []string{
		"Chat Session Summary:",
		"Total turns: 2",
		"Total prompt tokens: 2,500",
		"Total completion tokens: 80",
		"Total tokens: 2,580",
		"Total generation time: 4.0s",
		"Session duration: 10.0s",
		"Average tokens/turn: 40",
		"Average time/turn: 2.0s",
		"Overall tokens/second: 20.0",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q in:\n%s", want, got)
		}
	}
	if n := strings.Count(got, Rule()); n != 2 {
		t.Errorf("expected 2 rules, got %d", n)
	}
}

func TestSessionSummaryWithoutTurns(t *testing.T) {
	stats := NewSessionStats()

	var buf bytes.Buffer
	stats.WriteSummary(&buf, plainStyles(&buf))
	got := ansi.Strip(buf.String())

	if !strings.Contains(got, "Total turns: 0") {
		t.Errorf("expected zero turns, got:\n%s", got)
	}
	if strings.Contains(got, "Average") || strings.Contains(got, "Overall") {
		t.Errorf("averages should be omitted without turns, got:\n%s", got)
	}
}

func TestSessionStatsRender(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	stats := NewSessionStatsWithClock(func() time.Time { return now })
	stats.AddTurn(llm.GenerationStats{PromptTokens: 1200, CompletionTokens: 45})
	stats.ToolCalled()

	want := "Stats: 0.0s | 1 turns | 1,200 in / 45 out | 1 tools"
	if got := stats.Render(); got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

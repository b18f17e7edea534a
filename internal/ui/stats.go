package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/samsaffron/bizarro/internal/llm"
)

// RuleWidth is the width of the horizontal rules framing stats blocks.
const RuleWidth = 50

// Rule returns a horizontal rule.
func Rule() string {
	return strings.Repeat("─", RuleWidth)
}

// SessionStats tracks statistics for a chat session.
type SessionStats struct {
	StartTime        time.Time
	TurnCount        int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	ToolCallCount    int

	// Time tracking
	GenerationTime time.Duration

	now func() time.Time
}

// NewSessionStats creates a new SessionStats with StartTime set to now.
func NewSessionStats() *SessionStats {
	return NewSessionStatsWithClock(time.Now)
}

// NewSessionStatsWithClock creates session stats that read time from now.
func NewSessionStatsWithClock(now func() time.Time) *SessionStats {
	return &SessionStats{
		StartTime: now(),
		now:       now,
	}
}

// AddTurn folds one completed turn into the totals.
func (s *SessionStats) AddTurn(st llm.GenerationStats) {
	s.TurnCount++
	s.PromptTokens += st.PromptTokens
	s.CompletionTokens += st.CompletionTokens
	s.TotalTokens += st.TotalTokens
	s.GenerationTime += st.TotalTime
}

// ToolCalled counts a tool execution.
func (s *SessionStats) ToolCalled() {
	s.ToolCallCount++
}

// Duration is the wall-clock time since the session started.
func (s *SessionStats) Duration() time.Duration {
	return s.now().Sub(s.StartTime)
}

// Render returns the stats as a compact single-line string.
func (s *SessionStats) Render() string {
	return fmt.Sprintf("Stats: %.1fs | %d turns | %s in / %s out | %d tools",
		s.Duration().Seconds(), s.TurnCount,
		FormatCount(s.PromptTokens), FormatCount(s.CompletionTokens),
		s.ToolCallCount)
}

// WriteSummary prints the end-of-session summary block.
func (s *SessionStats) WriteSummary(w io.Writer, styles *Styles) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.Bold.Render("Chat Session Summary:"))
	fmt.Fprintln(w, styles.Muted.Render(Rule()))

	fmt.Fprintf(w, "Total turns: %d\n", s.TurnCount)
	fmt.Fprintf(w, "Total prompt tokens: %s\n", FormatCount(s.PromptTokens))
	fmt.Fprintf(w, "Total completion tokens: %s\n", FormatCount(s.CompletionTokens))
	fmt.Fprintf(w, "Total tokens: %s\n", FormatCount(s.TotalTokens))

	fmt.Fprintf(w, "Total generation time: %.1fs\n", s.GenerationTime.Seconds())
	fmt.Fprintf(w, "Session duration: %.1fs\n", s.Duration().Seconds())

	if s.TurnCount > 0 {
		avgTokens := float64(s.CompletionTokens) / float64(s.TurnCount)
		avgTime := s.GenerationTime.Seconds() / float64(s.TurnCount)
		fmt.Fprintf(w, "Average tokens/turn: %.0f\n", avgTokens)
		fmt.Fprintf(w, "Average time/turn: %.1fs\n", avgTime)
	}
	if s.GenerationTime > 0 {
		fmt.Fprintf(w, "Overall tokens/second: %.1f\n", llm.TokensPerSecond(s.CompletionTokens, s.GenerationTime))
	}

	fmt.Fprintln(w, styles.Muted.Render(Rule()))
}

// WriteGenerationStats prints the stats of one turn: a single line by
// default, the full breakdown when verbose.
func WriteGenerationStats(w io.Writer, styles *Styles, st llm.GenerationStats, verbose bool) {
	if verbose {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styles.Muted.Render(Rule()))
		fmt.Fprintln(w, styles.Bold.Render("Generation Statistics:"))
		lines := []string{
			"Prompt tokens: " + FormatCount(st.PromptTokens),
			"Completion tokens: " + FormatCount(st.CompletionTokens),
			"Total tokens: " + FormatCount(st.TotalTokens),
			fmt.Sprintf("Time to first token: %.3fs", st.TimeToFirstToken.Seconds()),
			fmt.Sprintf("Total time: %.2fs", st.TotalTime.Seconds()),
			fmt.Sprintf("Tokens/second: %.1f", st.TokensPerSecond),
		}
		for _, line := range lines {
			fmt.Fprintln(w, styles.Muted.Render(line))
		}
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.Muted.Render(fmt.Sprintf("%d tokens in %.1fs (%.1f tokens/s)",
		st.CompletionTokens, st.TotalTime.Seconds(), st.TokensPerSecond)))
}

// FormatCount formats n with thousands separators (12,345).
func FormatCount(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 && !(neg && b.Len() == 1) {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

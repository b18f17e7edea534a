package stream

import (
	"time"

	"github.com/samsaffron/bizarro/internal/llm"
)

// Finalize computes generation statistics for a finished pass. Completion
// tokens are counted per fragment.
func Finalize(st *State, promptTokens int, now time.Time) llm.GenerationStats {
	total := now.Sub(st.Start)
	if total < 0 {
		total = 0
	}
	var ttft time.Duration
	if !st.FirstToken.IsZero() {
		ttft = st.FirstToken.Sub(st.Start)
	}
	return llm.GenerationStats{
		PromptTokens:     promptTokens,
		CompletionTokens: st.Fragments,
		TotalTokens:      promptTokens + st.Fragments,
		TotalTime:        total,
		TimeToFirstToken: ttft,
		TokensPerSecond:  llm.TokensPerSecond(st.Fragments, total),
	}
}

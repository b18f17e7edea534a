package stream

import (
	"regexp"
	"strings"
)

var (
	thinkSpan    = regexp.MustCompile(`(?s)<think>.*?</think>`)
	toolCallSpan = regexp.MustCompile(`(?s)<tool_call>.*?</tool_call>`)
)

// CleanResponse returns text suitable for conversation history: thinking
// spans are removed, including an unterminated trailing one, and the result
// is trimmed. With stripToolCalls, tool call spans are removed the same way.
func CleanResponse(text string, stripToolCalls bool) string {
	out := thinkSpan.ReplaceAllString(text, "")
	out = dropUnterminated(out, OpenThink)
	out = strings.ReplaceAll(out, CloseThink, "")
	out = strings.TrimSpace(out)
	if stripToolCalls {
		out = toolCallSpan.ReplaceAllString(out, "")
		out = dropUnterminated(out, OpenToolCall)
		out = strings.ReplaceAll(out, CloseToolCall, "")
		out = strings.TrimSpace(out)
	}
	return out
}

// dropUnterminated cuts text at an opening tag that has no closing tag left.
func dropUnterminated(text, open string) string {
	if i := strings.Index(text, open); i >= 0 {
		return text[:i]
	}
	return text
}

package stream

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/samsaffron/bizarro/internal/llm"
)

var (
	taggedCall = regexp.MustCompile(`(?s)<tool_call>(.*?)</tool_call>`)
	fencedCall = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
)

// ExtractToolCalls finds tool calls in assembled model output. Tagged
// <tool_call> spans are tried first; fenced ```json blocks are only
// considered when no tagged call decodes. Candidates that are not JSON
// objects with a "name" are skipped.
func ExtractToolCalls(text string) []llm.ToolCall {
	if calls := collectCalls(taggedCall, text); len(calls) > 0 {
		return calls
	}
	return collectCalls(fencedCall, text)
}

func collectCalls(re *regexp.Regexp, text string) []llm.ToolCall {
	var calls []llm.ToolCall
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if call, ok := decodeCall(m[1]); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

func decodeCall(raw string) (llm.ToolCall, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &obj); err != nil {
		return llm.ToolCall{}, false
	}
	name, ok := obj["name"]
	if !ok {
		return llm.ToolCall{}, false
	}
	return llm.ToolCall{Name: callName(name), Arguments: decodeArguments(obj["arguments"])}, true
}

// callName keeps calls with an odd "name" so the unknown-tool reply tells
// the model what it sent.
func callName(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func decodeArguments(v any) map[string]any {
	switch args := v.(type) {
	case map[string]any:
		return args
	case string:
		// some models emit arguments as an encoded JSON string
		var decoded map[string]any
		if err := json.Unmarshal([]byte(args), &decoded); err == nil {
			return decoded
		}
	}
	return map[string]any{}
}

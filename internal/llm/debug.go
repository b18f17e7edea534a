package llm

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// DebugOut is where debug sections are written.
var DebugOut io.Writer = os.Stderr

// DebugPrompt prints the rendered prompt sent to the source.
func DebugPrompt(enabled bool, sourceName string, req Request) {
	if !enabled {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "source: %s\n", sourceName)
	if req.MaxTokens > 0 {
		fmt.Fprintf(&b, "max_tokens: %d\n", req.MaxTokens)
	}
	if len(req.Stop) > 0 {
		fmt.Fprintf(&b, "stop: %q\n", req.Stop)
	}
	fmt.Fprintf(&b, "cache: %t\n", req.Cache != nil && req.Cache.Enabled)
	b.WriteString("prompt:\n")
	b.WriteString(req.Prompt)
	debugSection(enabled, "Prompt", b.String())
}

// DebugToolCall prints a tool call in debug mode with readable formatting.
func DebugToolCall(enabled bool, call ToolCall) {
	if !enabled {
		return
	}

	body := fmt.Sprintf("name: %s\nargs:\n%s", call.Name, formatArgs(call.Arguments))
	debugSection(enabled, "Tool Call", body)
}

// DebugToolResult prints a tool result in debug mode.
func DebugToolResult(enabled bool, name, content string) {
	if !enabled {
		return
	}

	result := content
	if result == "" {
		result = "(empty)"
	}
	debugSection(enabled, "Tool Result", fmt.Sprintf("name: %s\nresult:\n%s", name, result))
}

func debugSection(enabled bool, title, body string) {
	if !enabled {
		return
	}

	fmt.Fprintln(DebugOut)
	fmt.Fprintf(DebugOut, "=== DEBUG: %s ===\n", title)
	if body != "" {
		fmt.Fprintln(DebugOut, body)
	}
	fmt.Fprintf(DebugOut, "=== DEBUG: END %s ===\n", title)
	fmt.Fprintln(DebugOut)
}

func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "(empty)"
	}
	data, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(data)
}

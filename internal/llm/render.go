package llm

import (
	"encoding/json"
	"strings"
)

// Renderer turns a conversation into the raw prompt text a Source consumes.
type Renderer interface {
	Render(conv *Conversation, tools []ToolSpec) string
	StopSequences() []string
}

const (
	imStart = "<|im_start|>"
	imEnd   = "<|im_end|>"
)

// ChatMLRenderer renders the ChatML layout used by Qwen models, including the
// Hermes-style <tools> block and <tool_response> turns.
type ChatMLRenderer struct{}

func (ChatMLRenderer) StopSequences() []string {
	return []string{imEnd, "<|endoftext|>"}
}

func (ChatMLRenderer) Render(conv *Conversation, tools []ToolSpec) string {
	msgs := conv.Messages()
	var b strings.Builder

	system := ""
	if len(msgs) > 0 && msgs[0].Role == RoleSystem {
		system = msgs[0].Content
		msgs = msgs[1:]
	}
	if len(tools) > 0 {
		b.WriteString(imStart + "system\n")
		if system != "" {
			b.WriteString(system)
			b.WriteString("\n\n")
		}
		writeToolsBlock(&b, tools)
		b.WriteString(imEnd + "\n")
	} else if system != "" {
		b.WriteString(imStart + "system\n" + system + imEnd + "\n")
	}

	for i, m := range msgs {
		switch m.Role {
		case RoleTool:
			// consecutive tool results share one user turn
			if i == 0 || msgs[i-1].Role != RoleTool {
				b.WriteString(imStart + "user")
			}
			b.WriteString("\n<tool_response>\n")
			b.WriteString(m.Content)
			b.WriteString("\n</tool_response>")
			if i == len(msgs)-1 || msgs[i+1].Role != RoleTool {
				b.WriteString(imEnd + "\n")
			}
		default:
			b.WriteString(imStart + string(m.Role) + "\n" + m.Content + imEnd + "\n")
		}
	}
	b.WriteString(imStart + "assistant\n")
	return b.String()
}

func writeToolsBlock(b *strings.Builder, tools []ToolSpec) {
	b.WriteString("# Tools\n\nYou may call one or more functions to assist with the user query.\n\n")
	b.WriteString("You are provided with function signatures within <tools></tools> XML tags:\n<tools>")
	for _, t := range tools {
		fn := map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Schema,
			},
		}
		data, err := json.Marshal(fn)
		if err != nil {
			continue
		}
		b.WriteString("\n")
		b.Write(data)
	}
	b.WriteString("\n</tools>\n\n")
	b.WriteString("For each function call, return a json object with function name and arguments within <tool_call></tool_call> XML tags:\n")
	b.WriteString("<tool_call>\n{\"name\": <function-name>, \"arguments\": <args-json-object>}\n</tool_call>")
}

// EstimateTokens approximates a token count from whitespace-separated words.
// It is used when the server does not report prompt usage.
func EstimateTokens(text string) int {
	return int(float64(len(strings.Fields(text))) * 1.3)
}

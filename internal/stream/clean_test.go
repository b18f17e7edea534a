package stream

import "testing"

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		stripCall bool
		want      string
	}{
		{"no tags", "  Hello  ", false, "Hello"},
		{"think span", "<think>a\nb</think>\n\nHello", false, "Hello"},
		{"two think spans", "<think>a</think>X<think>b</think>Y", false, "XY"},
		{"unterminated think", "Hi <think>never ends", false, "Hi"},
		{"stray close", "plan</think>Answer", false, "planAnswer"},
		{"tool call kept", "A<tool_call>{}</tool_call>", false, "A<tool_call>{}</tool_call>"},
		{"tool call stripped", "A <tool_call>{\"name\":\"x\"}</tool_call> B", true, "A  B"},
		{"unterminated tool call", "A <tool_call>{\"name\"", true, "A"},
		{"stray tool call close", "Result </tool_call> ok <tool_call>{\"name\":\"calculator\"}</tool_call>", true, "Result  ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanResponse(tt.in, tt.stripCall); got != tt.want {
				t.Errorf("CleanResponse(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

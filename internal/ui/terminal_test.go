package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/samsaffron/bizarro/internal/llm"
	"github.com/samsaffron/bizarro/internal/stream"
	"github.com/samsaffron/bizarro/internal/tools"
)

var _ stream.Sink = (*Terminal)(nil)

func newTestTerminal(interactive bool) (*Terminal, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewTerminalWithStyles(&buf, plainStyles(&buf), interactive), &buf
}

func TestTerminalIsNotInteractiveForBuffers(t *testing.T) {
	var buf bytes.Buffer
	if NewTerminal(&buf).Interactive() {
		t.Error("a bytes.Buffer is not a terminal")
	}
}

func TestTerminalLabelAndVisible(t *testing.T) {
	term, buf := newTestTerminal(false)
	term.Label()
	for _, ch := range []string{"H", "i"} {
		term.Visible(ch)
	}
	term.Newline()

	if got := ansi.Strip(buf.String()); got != "Assistant: Hi\n" {
		t.Errorf("got %q", got)
	}
}

func TestTerminalThinking(t *testing.T) {
	term, buf := newTestTerminal(false)
	term.ThinkingIndent()
	term.Thinking("o")
	term.Thinking("k")

	if got := ansi.Strip(buf.String()); got != ThinkingIndent+"ok" {
		t.Errorf("got %q", got)
	}
}

func TestTerminalIndicatorClearsLongerMessage(t *testing.T) {
	term, buf := newTestTerminal(true)
	term.ShowIndicator("⠋", "Calling: calculator...")
	buf.Reset()

	term.ShowIndicator("⠙", "Thinking...")
	got := buf.String()
	if !strings.HasPrefix(got, "\r"+strings.Repeat(" ", ansi.StringWidth("⠋ Calling: calculator..."))+"\r") {
		t.Errorf("expected the longer indicator to be cleared first, got %q", got)
	}
	if !strings.HasSuffix(got, "\r⠙ Thinking...") {
		t.Errorf("expected redrawn indicator, got %q", got)
	}
}

func TestTerminalClearIndicator(t *testing.T) {
	term, buf := newTestTerminal(true)
	term.ShowIndicator("⠋", "Thinking...")
	buf.Reset()

	term.ClearIndicator()
	want := "\r" + strings.Repeat(" ", ansi.StringWidth("⠋ Thinking...")) + "\r"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTerminalRaw(t *testing.T) {
	term, buf := newTestTerminal(false)
	term.Raw("<tool_call>")
	if buf.String() != "<tool_call>" {
		t.Errorf("got %q", buf.String())
	}
}

func TestToolPrinter(t *testing.T) {
	var buf bytes.Buffer
	stats := NewSessionStats()
	p := NewToolPrinter(&buf, plainStyles(&buf), stats, true)

	p.ToolStarted(llm.ToolCall{Name: "calculator"})
	p.ToolFinished(tools.Result{Name: "calculator", Content: "4"})

	got := ansi.Strip(buf.String())
	if got != "Executing tool: calculator\nTool result: 4\n" {
		t.Errorf("got %q", got)
	}
	if stats.ToolCallCount != 1 {
		t.Errorf("expected 1 tool call counted, got %d", stats.ToolCallCount)
	}
}

func TestToolPrinterQuiet(t *testing.T) {
	var buf bytes.Buffer
	p := NewToolPrinter(&buf, plainStyles(&buf), nil, false)
	p.ToolStarted(llm.ToolCall{Name: "calculator"})
	p.ToolFinished(tools.Result{Name: "calculator", Content: "4"})
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestThemeFromConfig(t *testing.T) {
	theme := ThemeFromConfig(ThemeConfig{Preset: "dracula", Label: "#123456"})
	if theme.Label != "#123456" {
		t.Errorf("explicit color should override preset, got %q", theme.Label)
	}
	if theme.Success != "#50fa7b" {
		t.Errorf("preset color not applied, got %q", theme.Success)
	}

	def := ThemeFromConfig(ThemeConfig{Preset: "unknown"})
	if def.Label != DefaultTheme().Label {
		t.Errorf("unknown preset should leave defaults, got %q", def.Label)
	}
}

func TestNewStylesUsesActiveTheme(t *testing.T) {
	saved := GetTheme()
	defer SetTheme(saved)

	SetTheme(ThemeFromConfig(ThemeConfig{Label: "#123456", Error: "#abcdef"}))
	var buf bytes.Buffer
	s := NewStyles(&buf)
	if got := s.Label.GetForeground(); got != Color("#123456") {
		t.Errorf("label foreground = %v, want #123456", got)
	}
	if got := s.Error.GetForeground(); got != Color("#abcdef") {
		t.Errorf("error foreground = %v, want #abcdef", got)
	}

	def := NewStyledWithTheme(&buf, DefaultTheme())
	if got := def.Label.GetForeground(); got != DefaultTheme().Label {
		t.Errorf("explicit theme ignored, got %v", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("calculator", 20); got != "calculator" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("Evaluate a mathematical expression", 10); got != "Evaluat..." {
		t.Errorf("got %q", got)
	}
}

package stream

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/samsaffron/bizarro/internal/llm"
)

const (
	OpenThink     = "<think>"
	CloseThink    = "</think>"
	OpenToolCall  = "<tool_call>"
	CloseToolCall = "</tool_call>"
)

var sentinels = [...]string{OpenThink, CloseThink, OpenToolCall, CloseToolCall}

var toolNamePattern = regexp.MustCompile(`"name"\s*:\s*"([^"]+)"`)

// Options control how a Parser renders a stream.
type Options struct {
	ShowThinking bool
	Verbose      bool
	// Label prints the assistant label before the first visible character.
	Label bool
	// ToolsEnabled turns on tool call extraction in Result.
	ToolsEnabled bool
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Parser classifies the characters of a fragment stream into regions and
// renders them to a Sink. Sentinels split across fragment boundaries are
// recognised: a fragment tail that could still become a sentinel is held back
// and rescanned with the next fragment.
type Parser struct {
	opts    Options
	sink    Sink
	display *Display
	state   *State
	carry   string
}

// NewParser starts a parsing pass. A nil sink discards output.
func NewParser(opts Options, sink Sink) *Parser {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if sink == nil {
		sink = Discard{}
	}
	return &Parser{
		opts:    opts,
		sink:    sink,
		display: NewDisplay(sink),
		state:   NewState(opts.Now()),
	}
}

// State exposes the pass state.
func (p *Parser) State() *State {
	return p.state
}

// Consume processes one fragment, in arrival order.
func (p *Parser) Consume(fragment string) {
	st := p.state
	st.Response.WriteString(fragment)
	st.Fragments++
	if st.FirstToken.IsZero() && strings.TrimSpace(fragment) != "" {
		st.FirstToken = p.opts.Now()
	}

	text := p.carry + fragment
	p.carry = ""
	p.scan(text, true)
}

// Finish flushes held-back characters and clears the indicator.
func (p *Parser) Finish() {
	if p.carry != "" {
		text := p.carry
		p.carry = ""
		p.scan(text, false)
	}
	p.display.Clear(p.state)
}

// Result builds the stream result. Call after Finish.
func (p *Parser) Result(promptTokens int) llm.StreamResult {
	full := p.state.Response.String()
	var calls []llm.ToolCall
	if p.opts.ToolsEnabled {
		calls = ExtractToolCalls(full)
	}
	return llm.StreamResult{
		Response:       CleanResponse(full, len(calls) > 0),
		ToolCalls:      calls,
		VisiblePrinted: p.state.VisiblePrinted,
		Stats:          Finalize(p.state, promptTokens, p.opts.Now()),
	}
}

func (p *Parser) scan(text string, allowCarry bool) {
	for i := 0; i < len(text); {
		rest := text[i:]
		if rest[0] == '<' {
			if s, ok := matchSentinel(rest); ok {
				p.transition(s)
				i += len(s)
				continue
			}
			if allowCarry && partialSentinel(rest) {
				p.carry = rest
				return
			}
		}
		_, size := utf8.DecodeRuneInString(rest)
		p.dispatch(rest[:size])
		i += size
	}
}

func matchSentinel(s string) (string, bool) {
	for _, sentinel := range sentinels {
		if strings.HasPrefix(s, sentinel) {
			return sentinel, true
		}
	}
	return "", false
}

// partialSentinel reports whether s is a proper prefix of some sentinel.
func partialSentinel(s string) bool {
	for _, sentinel := range sentinels {
		if len(s) < len(sentinel) && strings.HasPrefix(sentinel, s) {
			return true
		}
	}
	return false
}

func (p *Parser) transition(sentinel string) {
	st := p.state
	switch {
	case sentinel == OpenThink && st.Region == RegionNormal:
		p.enterThinking()
	case sentinel == CloseThink && st.Region == RegionThinking:
		p.leaveThinking()
	case sentinel == OpenToolCall && st.Region == RegionNormal:
		p.enterToolCall()
	case sentinel == CloseToolCall && st.Region == RegionToolCall:
		p.leaveToolCall()
	}
}

func (p *Parser) enterThinking() {
	st := p.state
	st.Region = RegionThinking
	st.ThinkingBuf.Reset()
	st.thinkingLineStarted = false
	st.firstThinkingChar = true
	if !p.opts.ShowThinking {
		p.display.Show(st, msgThinking)
	}
}

func (p *Parser) leaveThinking() {
	st := p.state
	st.Region = RegionNormal
	st.thinkingLineStarted = false
	if p.opts.ShowThinking && strings.TrimSpace(st.ThinkingBuf.String()) != "" {
		p.sink.Newline()
	} else {
		p.display.Clear(st)
	}
	st.ThinkingBuf.Reset()
}

func (p *Parser) enterToolCall() {
	st := p.state
	st.Region = RegionToolCall
	st.ToolCallBuf.Reset()
	st.ToolName = ""
	p.display.Show(st, msgCallingTool)
	if p.opts.Verbose {
		p.display.Clear(st)
		p.sink.Raw(OpenToolCall)
	}
}

func (p *Parser) leaveToolCall() {
	st := p.state
	if st.ToolName == "" {
		var payload struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal([]byte(strings.TrimSpace(st.ToolCallBuf.String())), &payload); err == nil {
			st.ToolName = payload.Name
		}
	}
	st.ToolCallBuf.Reset()
	st.Region = RegionNormal
	p.display.Clear(st)
	if p.opts.Verbose {
		p.sink.Raw(CloseToolCall)
	}
}

func (p *Parser) dispatch(ch string) {
	switch p.state.Region {
	case RegionThinking:
		p.state.ThinkingBuf.WriteString(ch)
		p.thinkingChar(ch)
	case RegionToolCall:
		p.state.ToolCallBuf.WriteString(ch)
		p.toolCallChar(ch)
	default:
		p.visibleChar(ch)
	}
}

func (p *Parser) thinkingChar(ch string) {
	st := p.state
	if !p.opts.ShowThinking {
		p.display.Tick(st, p.opts.Now())
		return
	}
	if ch == "\n" {
		p.sink.Newline()
		st.thinkingLineStarted = false
		return
	}
	if isSpace(ch) && !st.thinkingLineStarted {
		return
	}
	if !st.thinkingLineStarted {
		if st.firstThinkingChar {
			p.sink.Newline()
			st.firstThinkingChar = false
		}
		p.sink.ThinkingIndent()
		st.thinkingLineStarted = true
	}
	p.sink.Thinking(ch)
}

func (p *Parser) toolCallChar(ch string) {
	st := p.state
	if st.ToolName == "" {
		buf := st.ToolCallBuf.String()
		if strings.Contains(buf, "{") && strings.Contains(buf, "name") {
			if m := toolNamePattern.FindStringSubmatch(buf); m != nil {
				st.ToolName = m[1]
				p.display.Relabel(st, Message(st))
			}
		}
	}
	if p.opts.Verbose {
		p.sink.Raw(ch)
		return
	}
	p.display.Tick(st, p.opts.Now())
}

func (p *Parser) visibleChar(ch string) {
	st := p.state
	p.display.Clear(st)

	space := isSpace(ch)
	if p.opts.Label && !st.LabelPrinted && !space {
		p.sink.Label()
		st.LabelPrinted = true
		st.VisiblePrinted = true
	}
	if st.VisiblePrinted || !space {
		p.sink.Visible(ch)
		if !space {
			st.VisiblePrinted = true
		}
	}
}

func isSpace(ch string) bool {
	r, _ := utf8.DecodeRuneInString(ch)
	return unicode.IsSpace(r)
}

// Package engine runs conversation turns: it renders the conversation,
// streams a generation through the tag parser, executes any tool calls the
// model made and generates again until the model answers without tools.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/samsaffron/bizarro/internal/llm"
	"github.com/samsaffron/bizarro/internal/stream"
	"github.com/samsaffron/bizarro/internal/tools"
)

const defaultMaxToolTurns = 20

// ErrTooManyToolCalls is returned when the model keeps calling tools past
// the configured number of rounds.
var ErrTooManyToolCalls = errors.New("too many consecutive tool call rounds")

// Options configure a single RunTurn call.
type Options struct {
	MaxTokens    int
	MaxToolTurns int
	ToolsEnabled bool
	ShowThinking bool
	Verbose      bool
	// Label prints the assistant label before visible output.
	Label bool
	Cache *llm.Cache
	Debug bool
}

func (o Options) maxToolTurns() int {
	if o.MaxToolTurns > 0 {
		return o.MaxToolTurns
	}
	return defaultMaxToolTurns
}

// ToolObserver is notified around each tool execution.
type ToolObserver interface {
	ToolStarted(call llm.ToolCall)
	ToolFinished(result tools.Result)
}

// TurnCompletedCallback is called after each generation of a turn with the
// messages it appended to the conversation. round is 0-based.
type TurnCompletedCallback func(ctx context.Context, round int, messages []llm.Message, stats llm.GenerationStats) error

// Engine orchestrates generation and tool execution for a conversation.
type Engine struct {
	source   llm.Source
	renderer llm.Renderer
	tools    *tools.Registry
	sink     stream.Sink
	logger   *slog.Logger
	now      func() time.Time

	observer        ToolObserver
	onTurnCompleted TurnCompletedCallback
}

// New creates an engine. A nil registry disables tools; a nil sink discards
// display output.
func New(source llm.Source, renderer llm.Renderer, registry *tools.Registry, sink stream.Sink) *Engine {
	if registry == nil {
		registry = tools.NewRegistry()
	}
	if sink == nil {
		sink = stream.Discard{}
	}
	return &Engine{
		source:   source,
		renderer: renderer,
		tools:    registry,
		sink:     sink,
		logger:   slog.Default(),
		now:      time.Now,
	}
}

// SetLogger replaces the engine's logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// SetClock replaces the clock used for statistics.
func (e *Engine) SetClock(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// SetToolObserver registers an observer for tool execution.
func (e *Engine) SetToolObserver(o ToolObserver) {
	e.observer = o
}

// SetTurnCompletedCallback registers a callback run after every generation.
func (e *Engine) SetTurnCompletedCallback(cb TurnCompletedCallback) {
	e.onTurnCompleted = cb
}

// Tools returns the registry the engine executes against.
func (e *Engine) Tools() *tools.Registry {
	return e.tools
}

// RunTurn generates a reply to the conversation, executing tool calls and
// generating follow-ups until the model stops calling tools. The conversation
// is only appended to. The returned stats merge every generation of the turn,
// and are returned alongside any error.
func (e *Engine) RunTurn(ctx context.Context, conv *llm.Conversation, opts Options) (llm.GenerationStats, error) {
	maxRounds := opts.maxToolTurns()
	var total llm.GenerationStats

	for round := 0; ; round++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		res, err := e.generate(ctx, conv, opts)
		if round == 0 {
			total = res.Stats
		} else {
			total = llm.MergeStats(total, res.Stats)
		}
		if err != nil {
			return total, err
		}

		var appended []llm.Message
		if res.Response != "" {
			msg := llm.AssistantText(res.Response)
			conv.Append(msg)
			appended = append(appended, msg)
		}
		if res.VisiblePrinted {
			e.sink.Newline()
		}

		if len(res.ToolCalls) == 0 {
			return total, e.turnCompleted(ctx, round, appended, res.Stats)
		}
		if round >= maxRounds {
			e.logger.Warn("tool call limit reached", "rounds", maxRounds, "pending_calls", len(res.ToolCalls))
			return total, fmt.Errorf("%w (%d)", ErrTooManyToolCalls, maxRounds)
		}

		e.logger.Debug("executing tool calls", "round", round, "count", len(res.ToolCalls))
		for _, call := range res.ToolCalls {
			msg := e.executeTool(ctx, call, opts.Debug)
			conv.Append(msg)
			appended = append(appended, msg)
		}
		if err := e.turnCompleted(ctx, round, appended, res.Stats); err != nil {
			return total, err
		}
	}
}

func (e *Engine) turnCompleted(ctx context.Context, round int, msgs []llm.Message, stats llm.GenerationStats) error {
	if e.onTurnCompleted == nil {
		return nil
	}
	if err := e.onTurnCompleted(ctx, round, msgs, stats); err != nil {
		return fmt.Errorf("turn callback: %w", err)
	}
	return nil
}

func (e *Engine) generate(ctx context.Context, conv *llm.Conversation, opts Options) (llm.StreamResult, error) {
	var specs []llm.ToolSpec
	if opts.ToolsEnabled {
		specs = e.tools.AllSpecs()
	}
	prompt := e.renderer.Render(conv, specs)
	req := llm.Request{
		Prompt:    prompt,
		MaxTokens: opts.MaxTokens,
		Stop:      e.renderer.StopSequences(),
		Cache:     opts.Cache,
	}
	llm.DebugPrompt(opts.Debug, e.source.Name(), req)

	parser := stream.NewParser(stream.Options{
		ShowThinking: opts.ShowThinking,
		Verbose:      opts.Verbose,
		Label:        opts.Label,
		ToolsEnabled: opts.ToolsEnabled,
		Now:          e.now,
	}, e.sink)

	fs, err := e.source.Generate(ctx, req)
	if err != nil {
		return llm.StreamResult{}, fmt.Errorf("generate: %w", err)
	}
	defer func() {
		if cerr := fs.Close(); cerr != nil && !errors.Is(cerr, io.EOF) {
			e.logger.Debug("closing stream", "error", cerr)
		}
	}()

	if err := stream.Interpret(ctx, fs, parser); err != nil {
		return parser.Result(0), err
	}

	promptTokens := llm.EstimateTokens(prompt)
	if reporter, ok := fs.(llm.UsageReporter); ok {
		if n, ok := reporter.PromptTokens(); ok {
			promptTokens = n
		}
	}
	res := parser.Result(promptTokens)
	e.logger.Debug("generation finished",
		"source", e.source.Name(),
		"fragments", res.Stats.CompletionTokens,
		"tool_calls", len(res.ToolCalls),
		"elapsed", res.Stats.TotalTime,
	)
	return res, nil
}

func (e *Engine) executeTool(ctx context.Context, call llm.ToolCall, debug bool) llm.Message {
	llm.DebugToolCall(debug, call)
	if e.observer != nil {
		e.observer.ToolStarted(call)
	}

	res := e.tools.Execute(ctx, call)
	if res.Fault != tools.FaultNone {
		e.logger.Debug("tool call failed", "tool", call.Name, "fault", res.Fault, "result", res.Content)
	}

	llm.DebugToolResult(debug, call.Name, res.Content)
	if e.observer != nil {
		e.observer.ToolFinished(res)
	}
	return llm.ToolResultMessage(call.Name, res.Content)
}

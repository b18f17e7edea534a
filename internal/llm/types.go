package llm

import (
	"context"
	"time"
)

// Role identifies who authored a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single conversation entry. Name is set on tool messages.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// SystemText builds a system message.
func SystemText(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserText builds a user message.
func UserText(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantText builds an assistant message.
func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// ToolResultMessage builds the message that carries a tool's output back to the model.
func ToolResultMessage(name, content string) Message {
	return Message{Role: RoleTool, Name: name, Content: content}
}

// Conversation is an append-only message history.
type Conversation struct {
	messages []Message
}

// NewConversation starts a conversation, optionally seeded with messages.
func NewConversation(msgs ...Message) *Conversation {
	c := &Conversation{}
	c.messages = append(c.messages, msgs...)
	return c
}

// Append adds messages to the end of the history.
func (c *Conversation) Append(msgs ...Message) {
	c.messages = append(c.messages, msgs...)
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Last returns the most recent message, if any.
func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Reset drops every message except a leading system prompt.
func (c *Conversation) Reset() {
	if len(c.messages) > 0 && c.messages[0].Role == RoleSystem {
		c.messages = c.messages[:1]
		return
	}
	c.messages = nil
}

// ToolCall is a tool invocation extracted from model output.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolSpec describes a callable tool as presented to the model.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]interface{}
}

// GenerationStats summarises one generation (or several merged ones).
type GenerationStats struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	TotalTime        time.Duration
	TimeToFirstToken time.Duration
	TokensPerSecond  float64
}

// TokensPerSecond returns tokens/elapsed, or 0 when no time has elapsed.
func TokensPerSecond(tokens int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(tokens) / elapsed.Seconds()
}

// MergeStats folds a follow-up generation into the stats of the turn that
// triggered it. Prompt tokens and time to first token come from the first
// generation; counts and elapsed time add up.
func MergeStats(first, next GenerationStats) GenerationStats {
	merged := GenerationStats{
		PromptTokens:     first.PromptTokens,
		CompletionTokens: first.CompletionTokens + next.CompletionTokens,
		TotalTokens:      first.TotalTokens + next.TotalTokens,
		TotalTime:        first.TotalTime + next.TotalTime,
		TimeToFirstToken: first.TimeToFirstToken,
	}
	merged.TokensPerSecond = TokensPerSecond(merged.CompletionTokens, merged.TotalTime)
	return merged
}

// StreamResult is the outcome of interpreting one generation stream.
type StreamResult struct {
	Response       string
	ToolCalls      []ToolCall
	VisiblePrinted bool
	Stats          GenerationStats
}

// Fragment is one piece of generated text as delivered by a Source.
type Fragment struct {
	Text string
}

// FragmentStream yields fragments until io.EOF.
type FragmentStream interface {
	Recv() (Fragment, error)
	Close() error
}

// UsageReporter is implemented by streams that learn the prompt token count
// from the server. The value is only meaningful once Recv has returned io.EOF.
type UsageReporter interface {
	PromptTokens() (int, bool)
}

// Cache is a per-session prompt cache handle. It must not be shared between
// concurrent generations.
type Cache struct {
	Enabled bool
}

// Request is a single raw-text generation.
type Request struct {
	Prompt    string
	MaxTokens int
	Stop      []string
	Cache     *Cache
}

// Source produces text fragments for a prompt.
type Source interface {
	Name() string
	Generate(ctx context.Context, req Request) (FragmentStream, error)
}

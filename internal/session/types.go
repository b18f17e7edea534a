package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samsaffron/bizarro/internal/llm"
)

// SessionStatus represents the current state of a session.
type SessionStatus string

const (
	StatusActive      SessionStatus = "active"      // Session is open
	StatusComplete    SessionStatus = "complete"    // Session finished normally
	StatusInterrupted SessionStatus = "interrupted" // Session was cancelled by user
)

// Session is a saved chat conversation.
type Session struct {
	ID           string        `json:"id"`
	Model        string        `json:"model"`
	SystemPrompt string        `json:"system_prompt,omitempty"`
	Summary      string        `json:"summary,omitempty"` // First user message
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Status       SessionStatus `json:"status,omitempty"`

	// Session metrics
	Generations      int `json:"generations,omitempty"` // Model round-trips, tool follow-ups included
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
}

// Message is a conversation message stored in a session.
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      llm.Role  `json:"role"`
	Name      string    `json:"name,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Sequence  int       `json:"sequence"`
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// NewMessage creates a Message from an llm.Message with the given session ID and sequence.
func NewMessage(sessionID string, msg llm.Message, sequence int) *Message {
	return &Message{
		SessionID: sessionID,
		Role:      msg.Role,
		Name:      msg.Name,
		Content:   msg.Content,
		CreatedAt: time.Now(),
		Sequence:  sequence,
	}
}

// ToLLMMessage converts a Message back to an llm.Message.
func (m *Message) ToLLMMessage() llm.Message {
	return llm.Message{
		Role:    m.Role,
		Name:    m.Name,
		Content: m.Content,
	}
}

// TruncateSummary returns the first line of content, truncated to 100 chars.
func TruncateSummary(content string) string {
	content = strings.TrimSpace(content)
	if idx := strings.Index(content, "\n"); idx != -1 {
		content = content[:idx]
	}
	if r := []rune(content); len(r) > 100 {
		content = string(r[:97]) + "..."
	}
	return content
}

// Package tools implements the built-in tools the model can call and the
// registry the conversation engine executes them through.
package tools

import (
	"context"
	"fmt"

	"github.com/samsaffron/bizarro/internal/llm"
)

// Kind enumerates the built-in tools. The set is closed.
type Kind int

const (
	KindCalculator Kind = iota + 1
	KindCurrentTime
)

// AllKinds lists every built-in tool in presentation order.
var AllKinds = []Kind{KindCalculator, KindCurrentTime}

const (
	CalculatorToolName  = "calculator"
	CurrentTimeToolName = "get_current_time"
)

// Name returns the name the model uses to call the tool.
func (k Kind) Name() string {
	switch k {
	case KindCalculator:
		return CalculatorToolName
	case KindCurrentTime:
		return CurrentTimeToolName
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Tool is a callable tool. Execute returns the text handed back to the model.
type Tool interface {
	Spec() llm.ToolSpec
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Builtin constructs the tool for a kind.
func Builtin(k Kind) (Tool, error) {
	switch k {
	case KindCalculator:
		return NewCalculatorTool(), nil
	case KindCurrentTime:
		return NewCurrentTimeTool(nil), nil
	}
	return nil, fmt.Errorf("unknown tool kind %d", int(k))
}

// ToolErrorType classifies tool failures.
type ToolErrorType string

const (
	ErrInvalidParams    ToolErrorType = "INVALID_PARAMS"
	ErrUnsafeExpression ToolErrorType = "UNSAFE_EXPRESSION"
	ErrCalculation      ToolErrorType = "CALCULATION_FAILED"
)

// ToolError is returned by tools. Its message is what the model sees.
type ToolError struct {
	Type    ToolErrorType `json:"type"`
	Message string        `json:"message"`
}

func (e *ToolError) Error() string {
	return e.Message
}

// NewToolError creates a new ToolError.
func NewToolError(errType ToolErrorType, message string) *ToolError {
	return &ToolError{Type: errType, Message: message}
}

// NewToolErrorf creates a new ToolError with formatted message.
func NewToolErrorf(errType ToolErrorType, format string, args ...any) *ToolError {
	return &ToolError{Type: errType, Message: fmt.Sprintf(format, args...)}
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

package testutil

import (
	"context"

	"github.com/samsaffron/bizarro/internal/llm"
)

// MockTool is a configurable tool for testing.
type MockTool struct {
	SpecData    llm.ToolSpec
	ExecuteFn   func(ctx context.Context, args map[string]any) (string, error)
	Invocations []MockToolInvocation
}

// MockToolInvocation records a single tool invocation.
type MockToolInvocation struct {
	Args   map[string]any
	Result string
	Error  error
}

// Spec implements tools.Tool.
func (m *MockTool) Spec() llm.ToolSpec {
	return m.SpecData
}

// Execute implements tools.Tool.
func (m *MockTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	if m.ExecuteFn == nil {
		return "", nil
	}
	result, err := m.ExecuteFn(ctx, args)
	m.Invocations = append(m.Invocations, MockToolInvocation{
		Args:   args,
		Result: result,
		Error:  err,
	})
	return result, err
}

// NewMockTool creates a mock tool with the given name that returns a fixed result.
func NewMockTool(name string, result string) *MockTool {
	return &MockTool{
		SpecData: llm.ToolSpec{
			Name:        name,
			Description: "Mock tool: " + name,
			Schema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		ExecuteFn: func(ctx context.Context, args map[string]any) (string, error) {
			return result, nil
		},
	}
}

// NewFailingMockTool creates a mock tool that always returns err.
func NewFailingMockTool(name string, err error) *MockTool {
	tool := NewMockTool(name, "")
	tool.ExecuteFn = func(ctx context.Context, args map[string]any) (string, error) {
		return "", err
	}
	return tool
}

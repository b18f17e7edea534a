package tools

import (
	"context"
	"strings"

	"github.com/samsaffron/bizarro/internal/llm"
)

var unsafeKeywords = []string{"import", "__", "exec", "eval", "open", "file"}

// CalculatorTool evaluates arithmetic expressions.
type CalculatorTool struct{}

func NewCalculatorTool() *CalculatorTool {
	return &CalculatorTool{}
}

func (t *CalculatorTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        CalculatorToolName,
		Description: "Safely evaluate a mathematical expression like '2 + 3 * 4' or 'sqrt(16)'. Supports + - * / // % **, abs, round, min, max, sum, pow, sqrt, sin, cos, tan, log, log10, exp, pi and e.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"expression": map[string]interface{}{
					"type":        "string",
					"description": "The mathematical expression to evaluate",
				},
			},
			"required": []string{"expression"},
		},
	}
}

func (t *CalculatorTool) Execute(_ context.Context, args map[string]any) (string, error) {
	expr, ok := stringArg(args, "expression")
	if !ok {
		return "", NewToolError(ErrInvalidParams, "missing required argument 'expression'")
	}
	return Calculate(expr)
}

// Calculate evaluates expr and formats the result the way the model expects:
// integers without a decimal point, floats with at least one.
func Calculate(expr string) (string, error) {
	for _, kw := range unsafeKeywords {
		if strings.Contains(expr, kw) {
			return "", NewToolError(ErrUnsafeExpression, "Expression contains unsafe operations")
		}
	}
	v, err := evaluate(expr)
	if err != nil {
		return "", NewToolErrorf(ErrCalculation, "Calculation failed: %v", err)
	}
	return v.String(), nil
}

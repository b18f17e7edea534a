package tools

import (
	"context"
	"strings"
	"time"

	"github.com/samsaffron/bizarro/internal/llm"
)

// CurrentTimeTool reports the current date and time.
type CurrentTimeTool struct {
	now func() time.Time
}

// NewCurrentTimeTool creates the tool. A nil clock uses time.Now.
func NewCurrentTimeTool(now func() time.Time) *CurrentTimeTool {
	if now == nil {
		now = time.Now
	}
	return &CurrentTimeTool{now: now}
}

func (t *CurrentTimeTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        CurrentTimeToolName,
		Description: "Get the current date and time",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"timezone": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"local", "utc"},
					"description": "The timezone to use ('local', 'utc')",
				},
			},
		},
	}
}

func (t *CurrentTimeTool) Execute(_ context.Context, args map[string]any) (string, error) {
	tz := "local"
	if v, ok := args["timezone"]; ok {
		s, ok := v.(string)
		if !ok {
			return "", NewToolError(ErrInvalidParams, "timezone must be a string")
		}
		tz = s
	}
	now := t.now()
	if strings.EqualFold(tz, "utc") {
		return "Current UTC time: " + now.UTC().Format("2006-01-02 15:04:05") + " UTC", nil
	}
	return "Current local time: " + now.Local().Format("2006-01-02 15:04:05"), nil
}

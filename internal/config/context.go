package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/samsaffron/bizarro/internal/ui"
)

// ContextLengthError reports a requested context larger than the model allows.
type ContextLengthError struct {
	Requested int
	ModelMax  int
}

func (e *ContextLengthError) Error() string {
	return fmt.Sprintf("Requested context length %s exceeds model's maximum context length of %s",
		ui.FormatCount(e.Requested), ui.FormatCount(e.ModelMax))
}

// ValidateContextLength fails when requested exceeds modelMax.
func ValidateContextLength(requested, modelMax int) error {
	if requested > modelMax {
		return &ContextLengthError{Requested: requested, ModelMax: modelMax}
	}
	return nil
}

// EffectiveContextLength returns the context to use: the requested value once
// validated, or min(DefaultContextLength, modelMax) when none was requested.
func EffectiveContextLength(requested, modelMax int) (int, error) {
	if requested > 0 {
		if err := ValidateContextLength(requested, modelMax); err != nil {
			return 0, err
		}
		return requested, nil
	}
	return min(DefaultContextLength, modelMax), nil
}

// PromptError reports a system prompt that could not be loaded.
type PromptError struct {
	Path string
	Err  error
}

func (e *PromptError) Error() string {
	return fmt.Sprintf("Error reading system prompt file '%s': %v", e.Path, e.Err)
}

func (e *PromptError) Unwrap() error {
	return e.Err
}

// LoadSystemPrompt resolves a --system value. An existing regular file is read
// and trimmed; anything else is used as the prompt text itself.
func LoadSystemPrompt(input string) (string, error) {
	if input == "" {
		return "", nil
	}
	info, err := os.Stat(input)
	if err != nil || !info.Mode().IsRegular() {
		return input, nil
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return "", &PromptError{Path: input, Err: err}
	}
	return strings.TrimSpace(string(data)), nil
}

// UI converts the configured colors to the ui package's form.
func (t ThemeConfig) UI() ui.ThemeConfig {
	return ui.ThemeConfig{
		Preset:  t.Preset,
		Label:   t.Label,
		Info:    t.Info,
		Success: t.Success,
		Error:   t.Error,
		Warning: t.Warning,
		Muted:   t.Muted,
		Text:    t.Text,
		Spinner: t.Spinner,
		Prompt:  t.Prompt,
	}
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/samsaffron/bizarro/internal/config"
	"github.com/samsaffron/bizarro/internal/engine"
	"github.com/samsaffron/bizarro/internal/llm"
	"github.com/samsaffron/bizarro/internal/stream"
	"github.com/samsaffron/bizarro/internal/tools"
	"github.com/samsaffron/bizarro/internal/ui"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func initThemeFromConfig(cfg *config.Config) {
	ui.InitTheme(cfg.Theme.UI())
}

// toolRegistry returns the tools to offer the model, or an empty registry
// when tools are disabled. Config patterns apply unless flags override them.
func toolRegistry(cfg *config.Config, flags OutputFlags) (*tools.Registry, error) {
	if !flags.EnableTools {
		return tools.NewRegistry(), nil
	}
	patterns := cfg.Tools
	if len(flags.Tools) > 0 {
		patterns = flags.Tools
	}
	registry, err := tools.DefaultRegistry().Filter(patterns)
	if err != nil {
		return nil, err
	}
	if registry.Len() == 0 {
		return nil, fmt.Errorf("no tools match %s (available: %s)",
			strings.Join(patterns, ", "), strings.Join(tools.DefaultRegistry().Names(), ", "))
	}
	return registry, nil
}

// newEngine wires the completions source, renderer and tools to sink.
func newEngine(cfg *config.Config, registry *tools.Registry, sink stream.Sink) *engine.Engine {
	source := llm.NewCompletionsSource(cfg.Server.BaseURL, cfg.Server.APIKey, cfg.Model)
	return engine.New(source, llm.ChatMLRenderer{}, registry, sink)
}

// turnOptions builds the engine options shared by run and chat.
func turnOptions(cfg *config.Config, flags OutputFlags, label bool, cache *llm.Cache) engine.Options {
	return engine.Options{
		MaxTokens:    cfg.MaxTokens,
		MaxToolTurns: cfg.MaxToolTurns,
		ToolsEnabled: flags.EnableTools,
		ShowThinking: flags.ShowThinking,
		Verbose:      flags.Verbose,
		Label:        label,
		Cache:        cache,
		Debug:        flags.Debug,
	}
}

package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samsaffron/bizarro/internal/config"
	"github.com/samsaffron/bizarro/internal/llm"
	"github.com/samsaffron/bizarro/internal/signal"
	"github.com/samsaffron/bizarro/internal/ui"
	"github.com/spf13/cobra"
)

var (
	runFlags         OutputFlags
	runModel         string
	runMaxTokens     int
	runContextLength int
	runMaxKVSize     int
)

var runCmd = &cobra.Command{
	Use:   "run PROMPT",
	Short: "Generate a single response",
	Long: `Send one prompt to the model and print the reply.

Examples:
  bizarro run "Explain the halting problem in two sentences"
  bizarro run "What is sqrt(2) * pi?" --enable-tools
  bizarro run "Summarise this" --system prompt.txt --no-stats`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	AddOutputFlags(runCmd.Flags(), &runFlags)
	AddModelFlags(runCmd, &runModel, &runContextLength, &runMaxKVSize)
	runCmd.Flags().IntVar(&runMaxTokens, "max-tokens", 0, "Maximum number of tokens to generate (default from config)")
	registerToolsCompletion(runCmd)
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context())
	defer stop()

	flags := resolveOutputFlags(cmd, &runFlags)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.ApplyOverrides(config.Overrides{
		Model:         runModel,
		MaxTokens:     runMaxTokens,
		ContextLength: runContextLength,
		MaxKVSize:     runMaxKVSize,
	})
	initThemeFromConfig(cfg)

	contextLength, err := config.EffectiveContextLength(cfg.ContextLength, cfg.ModelContextLength)
	if err != nil {
		return err
	}
	slog.Debug("context", "length", contextLength, "model_max", cfg.ModelContextLength, "max_kv_size", cfg.MaxKVSize)
	system, err := config.LoadSystemPrompt(flags.System)
	if err != nil {
		return err
	}
	registry, err := toolRegistry(cfg, flags)
	if err != nil {
		return err
	}

	conv := llm.NewConversation()
	if system != "" {
		conv.Append(llm.SystemText(system))
	}
	conv.Append(llm.UserText(args[0]))

	out := cmd.OutOrStdout()
	styles := ui.NewStyles(out)
	eng := newEngine(cfg, registry, ui.NewTerminal(out))
	eng.SetToolObserver(ui.NewToolPrinter(out, styles, nil, flags.Verbose))

	// a single run still shares the server's prompt cache across tool follow-ups
	opts := turnOptions(cfg, flags, false, &llm.Cache{Enabled: true})
	stats, err := eng.RunTurn(ctx, conv, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("interrupted")
		}
		return err
	}

	slog.Debug("run finished", "model", cfg.Model, "messages", conv.Len())
	if !flags.NoStats {
		errOut := cmd.ErrOrStderr()
		ui.WriteGenerationStats(errOut, ui.NewStyles(errOut), stats, flags.Verbose)
	}
	return nil
}

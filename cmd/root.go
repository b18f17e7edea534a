package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bizarro",
	Short: "Chat with local reasoning models that can call tools",
	Long: `bizarro streams completions from a local OpenAI-compatible server
(mlx_lm.server, llama.cpp, vLLM), hides or shows the model's <think> reasoning,
and runs the tools the model calls.

Examples:
  bizarro run "What is 17 * 23?" --enable-tools
  bizarro chat --show-thinking
  bizarro chat --cache-file ~/.bizarro/chat.db   # resume the last conversation
  bizarro tools                                  # list available tools
  bizarro config                                 # view configuration`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(globalFlags.Debug)
	},
}

// globalFlags are the root persistent flags. Subcommands may redeclare
// them; a value set on the subcommand wins.
var globalFlags OutputFlags

func init() {
	AddOutputFlags(rootCmd.PersistentFlags(), &globalFlags)
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Debug, "debug", false, "Show debug information (prompts, tool calls)")
	registerToolsCompletion(rootCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// OutputFlags are the display and tool switches accepted both globally and
// per command.
type OutputFlags struct {
	System       string
	Verbose      bool
	ShowThinking bool
	EnableTools  bool
	NoStats      bool
	Tools        []string
	Debug        bool
}

// AddOutputFlags registers the shared flags on fs.
func AddOutputFlags(fs *pflag.FlagSet, f *OutputFlags) {
	fs.StringVar(&f.System, "system", "", "System message (string or file path)")
	fs.BoolVar(&f.Verbose, "verbose", false, "Print tokens, timing and tool execution details")
	fs.BoolVar(&f.ShowThinking, "show-thinking", false, "Show the model's thinking process")
	fs.BoolVar(&f.EnableTools, "enable-tools", false, "Enable tool support for function calling")
	fs.BoolVar(&f.NoStats, "no-stats", false, "Disable generation statistics output")
	fs.StringSliceVar(&f.Tools, "tools", nil, "Tool name patterns to enable (glob syntax, comma-separated; implies --enable-tools)")
}

// AddModelFlags adds the model selection flags shared by run and chat.
func AddModelFlags(cmd *cobra.Command, model *string, contextLength, maxKVSize *int) {
	cmd.Flags().StringVar(model, "model", "", "Model to use (default from config)")
	cmd.Flags().IntVar(contextLength, "context-length", 0, "Maximum context length to use (defaults to min(16384, model max))")
	cmd.Flags().IntVar(maxKVSize, "max-kv-size", 0, "Maximum size of the key-value cache (limits context window)")
}

// resolveOutputFlags merges command-level flags over the globals. A
// command-level flag only wins when the user set it.
func resolveOutputFlags(cmd *cobra.Command, local *OutputFlags) OutputFlags {
	out := globalFlags
	fs := cmd.Flags()
	changed := func(name string) bool {
		f := fs.Lookup(name)
		return f != nil && f.Changed && cmd.LocalNonPersistentFlags().Lookup(name) != nil
	}
	if changed("system") {
		out.System = local.System
	}
	if changed("verbose") {
		out.Verbose = local.Verbose
	}
	if changed("show-thinking") {
		out.ShowThinking = local.ShowThinking
	}
	if changed("enable-tools") {
		out.EnableTools = local.EnableTools
	}
	if changed("no-stats") {
		out.NoStats = local.NoStats
	}
	if changed("tools") {
		out.Tools = local.Tools
	}
	if len(out.Tools) > 0 {
		out.EnableTools = true
	}
	return out
}

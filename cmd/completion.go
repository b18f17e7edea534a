package cmd

import (
	"strings"

	"github.com/samsaffron/bizarro/internal/tools"
	"github.com/spf13/cobra"
)

// ToolsFlagCompletion provides completions for --tools with comma-separated support.
// When typing "calculator,get<TAB>", completes to "calculator,get_current_time".
func ToolsFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return completeList(tools.DefaultRegistry().Names(), toComplete), cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

// completeList completes the last element of a comma-separated list,
// skipping names already entered.
func completeList(names []string, toComplete string) []string {
	var alreadyEntered []string
	currentPrefix := toComplete
	if idx := strings.LastIndex(toComplete, ","); idx >= 0 {
		alreadyEntered = strings.Split(toComplete[:idx], ",")
		currentPrefix = toComplete[idx+1:]
	}

	enteredSet := make(map[string]bool)
	for _, s := range alreadyEntered {
		enteredSet[strings.TrimSpace(s)] = true
	}

	prefix := strings.Join(alreadyEntered, ",")
	if prefix != "" {
		prefix += ","
	}
	var completions []string
	for _, name := range names {
		if enteredSet[name] {
			continue
		}
		if strings.HasPrefix(name, currentPrefix) {
			completions = append(completions, prefix+name)
		}
	}
	return completions
}

// registerToolsCompletion wires --tools completion on cmd's flags.
func registerToolsCompletion(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("tools", ToolsFlagCompletion)
}

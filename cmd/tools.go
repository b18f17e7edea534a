package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/samsaffron/bizarro/internal/tools"
	"github.com/samsaffron/bizarro/internal/ui"
	"github.com/spf13/cobra"
)

var (
	toolsPatterns []string
	toolsSchema   bool
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools available to the model",
	Long: `List the built-in tools offered with --enable-tools.

Examples:
  bizarro tools
  bizarro tools --tools 'calc*'
  bizarro tools --schema`,
	Args: cobra.NoArgs,
	RunE: runTools,
}

func init() {
	toolsCmd.Flags().StringSliceVar(&toolsPatterns, "tools", nil, "Only list tools matching these glob patterns")
	toolsCmd.Flags().BoolVar(&toolsSchema, "schema", false, "Print each tool's parameter schema")
	registerToolsCompletion(toolsCmd)
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	registry := tools.DefaultRegistry()
	if len(toolsPatterns) > 0 {
		filtered, err := registry.Filter(toolsPatterns)
		if err != nil {
			return err
		}
		registry = filtered
	}
	out := cmd.OutOrStdout()
	return listTools(out, ui.NewStyles(out), registry, toolsSchema)
}

func listTools(w io.Writer, styles *ui.Styles, registry *tools.Registry, schema bool) error {
	if registry.Len() == 0 {
		fmt.Fprintln(w, styles.Muted.Render("No tools match."))
		return nil
	}
	for _, spec := range registry.AllSpecs() {
		fmt.Fprintf(w, "%s  %s\n", styles.Bold.Render(spec.Name), ui.Truncate(spec.Description, 70))
		if !schema {
			continue
		}
		data, err := json.MarshalIndent(spec.Schema, "    ", "  ")
		if err != nil {
			return fmt.Errorf("encode schema for %s: %w", spec.Name, err)
		}
		fmt.Fprintf(w, "    %s\n", data)
	}
	return nil
}

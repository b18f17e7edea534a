package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/samsaffron/bizarro/internal/config"
	"github.com/samsaffron/bizarro/internal/tools"
	"github.com/samsaffron/bizarro/internal/ui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage bizarro configuration",
	Long: `View or edit your bizarro configuration.

Examples:
  bizarro config                          # show current config
  bizarro config edit                     # edit in $EDITOR
  bizarro config reset                    # reset to defaults
  bizarro config set model mlx-community/Qwen3-4B-4bit`,
	RunE: configShow, // Default to show
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file in $EDITOR",
	RunE:  configEdit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print configuration file path",
	RunE:  configPath,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset configuration to defaults",
	Long:  `Reset the configuration file to default values. This will overwrite any existing configuration.`,
	RunE:  configReset,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value while preserving comments.

Examples:
  bizarro config set model mlx-community/Qwen3-4B-4bit
  bizarro config set server.base_url http://localhost:8081/v1
  bizarro config set cache.enabled true
  bizarro config set theme.preset dracula`,
	Args:              cobra.ExactArgs(2),
	RunE:              configSet,
	ValidArgsFunction: configSetCompletion,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a configuration value.

Examples:
  bizarro config get model
  bizarro config get server.base_url`,
	Args:              cobra.ExactArgs(1),
	RunE:              configGet,
	ValidArgsFunction: configGetCompletion,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configResetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
}

func configShow(cmd *cobra.Command, args []string) error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	return writeConfig(cmd.OutOrStdout(), cfg, configPath, config.Exists())
}

// writeConfig prints the effective configuration as YAML with the API key
// masked.
func writeConfig(w io.Writer, cfg *config.Config, path string, exists bool) error {
	if exists {
		fmt.Fprintf(w, "# %s\n\n", path)
	} else {
		fmt.Fprintf(w, "# No config file (using defaults)\n# Create one with: bizarro config edit\n\n")
	}

	shown := *cfg
	shown.Server.APIKey = maskKey(cfg.Server.APIKey)

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&shown); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	encoder.Close()

	_, err := w.Write(buf.Bytes())
	return err
}

// maskKey keeps the last four characters of a key.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

func configEdit(cmd *cobra.Command, args []string) error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create default config if it doesn't exist
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.WriteFile(configPath, []byte(defaultConfigContent()), 0644); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	return editorCmd.Run()
}

func configPath(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func configReset(cmd *cobra.Command, args []string) error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfigContent()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Config reset to defaults: %s\n", configPath)
	return nil
}

func defaultConfigContent() string {
	return fmt.Sprintf(`# bizarro configuration
# Run 'bizarro config edit' to modify

# OpenAI-compatible completions server (mlx_lm.server, llama.cpp, vLLM)
server:
  base_url: %s
  # api_key: ${OPENAI_API_KEY}

model: %s
max_tokens: %d
max_tool_turns: %d

# context_length defaults to min(%d, model_context_length)
model_context_length: %d
# context_length: 8192
# max_kv_size: 4096

# Tools offered with --enable-tools (glob patterns); empty means all
# tools:
#   - calculator
#   - get_current_time

cache:
  enabled: false
  # file: ~/.local/share/bizarro/chat.db

sessions:
  max_age_days: %d  # 0 keeps saved conversations forever

# UI theme colors (ANSI 0-255 or hex #RRGGBB)
# theme:
#   preset: ansi      # ansi, gruvbox, dracula, nord
#   label: "5"        # assistant label
#   muted: "8"        # thinking and dim text
#   spinner: "5"      # loading indicator
`, config.DefaultBaseURL, config.DefaultModel, config.DefaultMaxTokens, config.DefaultMaxToolTurns,
		config.DefaultContextLength, config.DefaultModelContextLength, config.DefaultSessionMaxAgeDays)
}

// configSet sets a configuration value while preserving comments
func configSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Read existing file or create empty document
	var root yaml.Node
	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		root = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode}},
		}
	} else if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if err := setYAMLValue(&root, strings.Split(key, "."), value); err != nil {
		return fmt.Errorf("failed to set value: %w", err)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&root); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	encoder.Close()

	if err := os.WriteFile(configPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
	return nil
}

// setYAMLValue navigates/creates the path in a yaml.Node tree and sets the value
func setYAMLValue(root *yaml.Node, path []string, value string) error {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return fmt.Errorf("invalid document structure")
	}

	current := root.Content[0]
	if current.Kind != yaml.MappingNode {
		return fmt.Errorf("root is not a mapping")
	}

	for i, part := range path {
		isLast := i == len(path)-1

		found := false
		for j := 0; j < len(current.Content); j += 2 {
			if current.Content[j].Value != part {
				continue
			}
			if isLast {
				valueNode := current.Content[j+1]
				valueNode.Kind = yaml.ScalarNode
				valueNode.Value = value
				valueNode.Tag = ""
				valueNode.Content = nil
			} else {
				current = current.Content[j+1]
				if current.Kind != yaml.MappingNode {
					current.Kind = yaml.MappingNode
					current.Content = nil
					current.Value = ""
					current.Tag = ""
				}
			}
			found = true
			break
		}
		if found {
			continue
		}

		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: part}
		if isLast {
			current.Content = append(current.Content, keyNode, &yaml.Node{Kind: yaml.ScalarNode, Value: value})
		} else {
			mapping := &yaml.Node{Kind: yaml.MappingNode}
			current.Content = append(current.Content, keyNode, mapping)
			current = mapping
		}
	}

	return nil
}

// configGet gets a configuration value
func configGet(cmd *cobra.Command, args []string) error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config file does not exist")
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	value, err := getYAMLValue(&root, strings.Split(args[0], "."))
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

// getYAMLValue navigates the yaml.Node tree and returns the value at path
func getYAMLValue(root *yaml.Node, path []string) (string, error) {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return "", fmt.Errorf("invalid document structure")
	}

	current := root.Content[0]
	for _, part := range path {
		if current.Kind != yaml.MappingNode {
			return "", fmt.Errorf("path not found: expected mapping")
		}

		found := false
		for j := 0; j < len(current.Content); j += 2 {
			if current.Content[j].Value == part {
				current = current.Content[j+1]
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("key not found: %s", part)
		}
	}

	if current.Kind == yaml.ScalarNode {
		return current.Value, nil
	}
	return "", fmt.Errorf("value is not a scalar")
}

// configKeys lists the settable scalar keys.
var configKeys = []string{
	"server.base_url",
	"server.api_key",
	"model",
	"max_tokens",
	"max_tool_turns",
	"context_length",
	"model_context_length",
	"max_kv_size",
	"cache.enabled",
	"cache.file",
	"sessions.max_age_days",
	"theme.preset",
	"theme.label",
	"theme.info",
	"theme.success",
	"theme.error",
	"theme.warning",
	"theme.muted",
	"theme.text",
	"theme.spinner",
	"theme.prompt",
}

func configSetCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return filterPrefix(configKeys, toComplete), cobra.ShellCompDirectiveNoFileComp
	case 1:
		return configValueCompletions(args[0], toComplete), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func configGetCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return filterPrefix(configKeys, toComplete), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// configValueCompletions returns completions for config values based on key
func configValueCompletions(key, toComplete string) []string {
	switch key {
	case "cache.enabled":
		return filterPrefix([]string{"true", "false"}, toComplete)
	case "theme.preset":
		return filterPrefix(ui.PresetThemeNames, toComplete)
	case "tools":
		return filterPrefix(tools.DefaultRegistry().Names(), toComplete)
	}
	return nil
}

func filterPrefix(candidates []string, prefix string) []string {
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

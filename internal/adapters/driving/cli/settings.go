package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// settingKey describes one recognised configuration key.
type settingKey struct {
	key         string
	description string
	secret      bool
}

// settingKeys lists every key the CLI recognises, in display order.
var settingKeys = []settingKey{
	{key: "embedding.provider", description: "embedding provider: ollama, openai, or lexical"},
	{key: "embedding.ollama.base_url", description: "ollama server URL"},
	{key: "embedding.ollama.model", description: "ollama embedding model"},
	{key: "embedding.ollama.timeout_seconds", description: "ollama request timeout in seconds"},
	{key: "embedding.ollama.dimensions", description: "expected ollama embedding dimensions"},
	{key: "embedding.openai.base_url", description: "OpenAI-compatible API base URL"},
	{key: "embedding.openai.api_key", description: "OpenAI API key", secret: true},
	{key: "embedding.openai.model", description: "OpenAI embedding model"},
	{key: "embedding.openai.dimensions", description: "expected OpenAI embedding dimensions"},
	{key: "embedding.openai.requests_per_minute", description: "OpenAI request rate limit"},
	{key: "embedding.lexical.dimensions", description: "lexical embedding dimensions"},
	{key: "chunking.size", description: "chunk size in characters"},
	{key: "chunking.overlap", description: "chunk overlap in characters"},
	{key: "query.top_k", description: "default number of query results"},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change configuration: embedding provider, chunking, and
query defaults. Values are stored in the config file and take effect
on the next run.

Changing the embedding provider, model, or dimensions after documents
have been indexed requires a reset: stored vectors only compare
against vectors from the same model.`,
	RunE: runSettingsList,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all settings",
	RunE:  runSettingsList,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Long: `Stores a configuration value. Secret values such as API keys may be
set without a value argument; they are then prompted for without echo.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsList(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	cmd.Println("Settings")
	cmd.Println()
	for _, k := range settingKeys {
		value, ok := configStore.Get(k.key)
		display := "(not set)"
		if ok {
			display = fmt.Sprintf("%v", value)
			if k.secret {
				display = maskAPIKey(display)
			}
		}
		cmd.Printf("  %-38s %s\n", k.key, display)
	}
	cmd.Println()
	cmd.Printf("Config file: %s\n", configStore.Path())

	return nil
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key := args[0]
	setting, err := lookupSetting(key)
	if err != nil {
		return err
	}

	value, ok := configStore.Get(key)
	if !ok {
		cmd.Printf("%s is not set (%s)\n", key, setting.description)
		return nil
	}

	display := fmt.Sprintf("%v", value)
	if setting.secret {
		display = maskAPIKey(display)
	}
	cmd.Printf("%s = %s\n", key, display)

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key := args[0]
	setting, err := lookupSetting(key)
	if err != nil {
		return err
	}

	var raw string
	switch {
	case len(args) == 2:
		raw = args[1]
	case setting.secret:
		cmd.Printf("Enter value for %s: ", key)
		raw = readPassword()
		cmd.Println()
		if raw == "" {
			return errors.New("no value entered")
		}
	default:
		return fmt.Errorf("setting %s requires a value", key)
	}

	if key == "embedding.provider" {
		switch raw {
		case "ollama", "openai", "lexical":
		default:
			return fmt.Errorf("invalid provider %q: must be ollama, openai, or lexical", raw)
		}
	}

	if err := configStore.Set(key, coerceValue(raw)); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}

	display := raw
	if setting.secret {
		display = maskAPIKey(raw)
	}
	cmd.Printf("Set %s = %s\n", key, display)

	return nil
}

func lookupSetting(key string) (settingKey, error) {
	for _, k := range settingKeys {
		if k.key == key {
			return k, nil
		}
	}
	return settingKey{}, fmt.Errorf("unknown setting %q: run 'recall settings list' to see available keys", key)
}

// coerceValue stores numbers and booleans typed so the config file
// round-trips them; everything else stays a string.
func coerceValue(raw string) any {
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

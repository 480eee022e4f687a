package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arin/sapphire/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage sapphire settings",
	Long: `Settings are stored in ~/.sapphire/settings.json. SAPPHIRE_MODEL,
SAPPHIRE_OLLAMA_URL and SAPPHIRE_IDLE_TIMEOUT override them for a single run
and may also be set in a .env file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, key := range config.Keys {
			v, err := cfg.Get(key)
			if err != nil {
				return err
			}
			fmt.Printf("%-12s %s\n", key+":", v)
		}
		fmt.Printf("%-12s %s\n", "configDir:", config.Dir())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Example: `  sapphire config set aiModel llama3.2
  sapphire config set theme light
  sapphire config set idleTimeout 30`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Set(args[0], args[1]); err != nil {
			return fmt.Errorf("failed to save setting: %w", err)
		}
		fmt.Printf("%s set to %s.\n", args[0], args[1])
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.Path())
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
}

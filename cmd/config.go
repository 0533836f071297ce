package cmd

import (
	"github.com/spf13/cobra"

	"github.com/user/trialchat/internal/handlers"
)

var (
	showKeys     bool
	globalConfig bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create trialchat settings",
	Long: `Inspect and write trialchat configuration.

Configuration is read, lowest precedence first, from:
  - built-in defaults
  - Global: ~/.trialchat.yaml
  - Project: ./.trialchat.yaml
  - the file named by --config
  - TRIALCHAT_* environment variables (and .env)
  - command line flags

OPENAI_API_KEY and ANTHROPIC_API_KEY are used when no api_key is set.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Configure the LLM provider interactively",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configShowCmd.Flags().BoolVar(&showKeys, "keys", false, "List every key with its environment variable")
	configInitCmd.Flags().BoolVar(&globalConfig, "global", false, "Write ~/.trialchat.yaml instead of ./.trialchat.yaml")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cc, err := LoadCommandContext(nil)
	if err != nil {
		return err
	}
	defer cc.Close()

	opts := handlers.ConfigOptions{Out: cmd.OutOrStdout(), ProjectDir: "."}
	if showKeys {
		opts.Keys = cc.Loader.Viper().AllKeys()
	}
	return handlers.NewConfigShowHandler(cc.Config, cc.Logger, opts).Handle(cmd.Context())
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cc, err := LoadCommandContext(nil)
	if err != nil {
		return err
	}
	defer cc.Close()

	handler := handlers.NewConfigInitHandler(cc.Config, cc.Logger, handlers.ConfigOptions{
		Out:        cmd.OutOrStdout(),
		ProjectDir: ".",
		Global:     globalConfig,
	})
	return handler.Handle(cmd.Context())
}

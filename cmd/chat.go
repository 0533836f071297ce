package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/trialchat/internal/handlers"
	"github.com/user/trialchat/internal/logging"
)

// sessionBindings are the flags shared by chat and ask
var sessionBindings = []flagBinding{
	{"provider", "llm.provider"},
	{"model", "llm.model"},
	{"base-url", "llm.base_url"},
	{"plugin", "session.plugin"},
	{"max-rounds", "session.max_rounds"},
	{"stream", "session.stream"},
	{"csv-dir", "session.csv_dir"},
	{"transcript", "transcript.path"},
	{"metrics-addr", "metrics.addr"},
}

var (
	markdownFlag    bool
	showResultsFlag bool
)

func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().String("provider", "", "LLM provider (openai, anthropic, ollama)")
	cmd.Flags().String("model", "", "Model name")
	cmd.Flags().String("base-url", "", "Provider base URL for compatible APIs")
	cmd.Flags().String("plugin", "", "Function set (clinical_trials, none)")
	cmd.Flags().Int("max-rounds", 0, "Function-call rounds allowed per turn")
	cmd.Flags().Bool("stream", true, "Print answers while they are generated")
	cmd.Flags().String("csv-dir", "", "Directory save_csv writes to")
	cmd.Flags().String("transcript", "", "SQLite file archiving the conversation")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&markdownFlag, "markdown", false, "Render complete answers as markdown")
	cmd.Flags().BoolVar(&showResultsFlag, "show-results", false, "Print a preview of every function result")
}

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation with the configured LLM.

Commands typed at the prompt:
  /history  show the conversation so far
  /reset    start a new conversation
  /quit     leave the chat

Ctrl-C cancels the answer in progress.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	addSessionFlags(chatCmd)
	addSessionFlags(askCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cc, err := LoadCommandContext(FlagOverrides(cmd, sessionBindings...))
	if err != nil {
		return err
	}
	defer cc.Close()

	cc.Logger.Info("Starting trialchat chat",
		logging.String("provider", cc.Config.LLM.Provider),
		logging.String("model", cc.Config.LLM.Model),
	)

	handler := handlers.NewChatHandler(cc.Config, cc.Logger, handlers.ChatOptions{
		In:          cmd.InOrStdin(),
		Out:         cmd.OutOrStdout(),
		Markdown:    markdownFlag,
		ShowResults: showResultsFlag,
	})
	return handler.Handle(cmd.Context())
}

func runAsk(cmd *cobra.Command, args []string) error {
	cc, err := LoadCommandContext(FlagOverrides(cmd, sessionBindings...))
	if err != nil {
		return err
	}
	defer cc.Close()

	handler := handlers.NewAskHandler(cc.Config, cc.Logger, handlers.AskOptions{
		Question:    strings.Join(args, " "),
		Out:         cmd.OutOrStdout(),
		Markdown:    markdownFlag,
		ShowResults: showResultsFlag,
	})
	return handler.Handle(cmd.Context())
}

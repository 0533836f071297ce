package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is reported by --version and announced to MCP clients
const version = "0.1.0"

var (
	debugFlag   bool
	verboseFlag bool
	configFile  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "trialchat",
	Short: "Chat with clinicaltrials.gov through an LLM",
	Long: `Ask questions about clinical trials in plain language.

trialchat lets an LLM search the clinicaltrials.gov v2 API, read sections of
individual study records and save tables as CSV files, then answers from what
it found. The same functions are available to other agents over MCP.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the error's exit code
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		_ = HandleCommandError(err, os.Stderr)
		os.Exit(ExitCodeFor(err))
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging with caller information")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Mirror log output to stderr")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file merged over ./.trialchat.yaml")
}

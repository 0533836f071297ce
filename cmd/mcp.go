package cmd

import (
	"github.com/spf13/cobra"

	"github.com/user/trialchat/internal/handlers"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the study functions over MCP (stdio)",
	Long: `Serve study_search, get_field_info and save_csv to other agents over the
Model Context Protocol. Requests are read from stdin and answered on stdout;
logs never go to stdout.`,
	Args: cobra.NoArgs,
	RunE: runMcp,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("plugin", "", "Function set (clinical_trials, none)")
	mcpCmd.Flags().String("csv-dir", "", "Directory save_csv writes to")
	mcpCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
}

func runMcp(cmd *cobra.Command, args []string) error {
	cc, err := LoadCommandContext(FlagOverrides(cmd,
		flagBinding{"plugin", "session.plugin"},
		flagBinding{"csv-dir", "session.csv_dir"},
		flagBinding{"metrics-addr", "metrics.addr"},
	))
	if err != nil {
		return err
	}
	defer cc.Close()

	handler := handlers.NewMcpHandler(cc.Config, cc.Logger, handlers.McpOptions{
		Version: version,
		In:      cmd.InOrStdin(),
		Out:     cmd.OutOrStdout(),
	})
	return handler.Handle(cmd.Context())
}

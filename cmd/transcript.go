package cmd

import (
	"github.com/spf13/cobra"

	"github.com/user/trialchat/internal/errors"
	"github.com/user/trialchat/internal/export"
	"github.com/user/trialchat/internal/handlers"
)

var (
	listLimit    int
	exportFormat string
	exportOutput string
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Browse and export archived chat sessions",
	Long: `Work with the SQLite archive written when transcript.path is set.

Sessions can be referred to by their full id or by a prefix of at least
eight characters.`,
}

var transcriptListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runTranscriptList,
}

var transcriptExportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export an archived session as HTML or JSON",
	Example: `  trialchat transcript export 5b0e7c2a -o session.html
  trialchat transcript export 5b0e7c2a --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscriptExport,
}

func init() {
	rootCmd.AddCommand(transcriptCmd)
	transcriptCmd.AddCommand(transcriptListCmd)
	transcriptCmd.AddCommand(transcriptExportCmd)

	transcriptCmd.PersistentFlags().String("transcript", "", "SQLite archive to read (defaults to transcript.path)")
	transcriptListCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of sessions to list")
	transcriptExportCmd.Flags().StringVar(&exportFormat, "format", string(export.FormatHTML), "Output format (html, json)")
	transcriptExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to this file instead of stdout")
}

func runTranscriptList(cmd *cobra.Command, args []string) error {
	cc, err := LoadCommandContext(FlagOverrides(cmd, flagBinding{"transcript", "transcript.path"}))
	if err != nil {
		return err
	}
	defer cc.Close()

	handler := handlers.NewTranscriptListHandler(cc.Config, cc.Logger, handlers.TranscriptOptions{
		Limit: listLimit,
		Out:   cmd.OutOrStdout(),
	})
	return handler.Handle(cmd.Context())
}

func runTranscriptExport(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return errors.WrapError(err, "invalid --format", errors.ExitValidationError)
	}

	cc, err := LoadCommandContext(FlagOverrides(cmd, flagBinding{"transcript", "transcript.path"}))
	if err != nil {
		return err
	}
	defer cc.Close()

	handler := handlers.NewTranscriptExportHandler(cc.Config, cc.Logger, handlers.TranscriptOptions{
		SessionID: args[0],
		Format:    format,
		Output:    exportOutput,
		Out:       cmd.OutOrStdout(),
	})
	return handler.Handle(cmd.Context())
}

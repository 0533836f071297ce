package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/trialchat/internal/handlers"
)

var (
	pageSize  int
	listField bool
)

var trialsBindings = []flagBinding{
	{"base-url", "trials.base_url"},
}

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search studies without a model",
	Long: `Run the study_search function directly and print its result.

The query is passed to the API verbatim and may use Essie expressions, e.g.
  trialchat search 'asthma AND AREA[Phase]PHASE3'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

// fieldCmd represents the field command
var fieldCmd = &cobra.Command{
	Use:   "field <nct_ids> <field>",
	Short: "Print one section of one or more study records",
	Long: `Run the get_field_info function directly and print its result.

nct_ids is a comma separated list. Use --list to see the recognized fields.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if listField {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: runField,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(fieldCmd)

	searchCmd.Flags().IntVar(&pageSize, "page-size", 10, "Number of studies to return")
	searchCmd.Flags().String("base-url", "", "Studies API base URL")
	fieldCmd.Flags().BoolVar(&listField, "list", false, "List the recognized fields")
	fieldCmd.Flags().String("base-url", "", "Studies API base URL")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cc, err := LoadCommandContext(FlagOverrides(cmd, trialsBindings...))
	if err != nil {
		return err
	}
	defer cc.Close()

	handler := handlers.NewSearchHandler(cc.Config, cc.Logger, handlers.SearchOptions{
		Query:    strings.Join(args, " "),
		PageSize: pageSize,
		Out:      cmd.OutOrStdout(),
	})
	return handler.Handle(cmd.Context())
}

func runField(cmd *cobra.Command, args []string) error {
	cc, err := LoadCommandContext(FlagOverrides(cmd, trialsBindings...))
	if err != nil {
		return err
	}
	defer cc.Close()

	opts := handlers.FieldOptions{List: listField, Out: cmd.OutOrStdout()}
	if !listField {
		opts.NCTIDs, opts.Field = args[0], args[1]
	}
	return handlers.NewFieldHandler(cc.Config, cc.Logger, opts).Handle(cmd.Context())
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rtzll/digestbot/internal"
)

// discoverCmd lists candidates without resolving or broadcasting anything
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List each enabled source's candidates and their ledger state",
	Long: `List what a run would look at, without fetching transcripts or articles,
calling the LLM, broadcasting or touching the ledger.`,
	Example: `  # Show candidates of every enabled source
  digestbot discover --pretty

  # Only June 2025, written to a file
  digestbot discover --year 2025 --month 6 -o candidates.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := internal.DateFilterFromFlags(cmd)
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true

		app := internal.NewApp(config, internal.WithLogger(logger), internal.WithUI(internal.NewSilentUIManager()))
		defer app.Close()

		results, err := app.Discover(cmd.Context(), filter)
		if err != nil {
			return err
		}

		pretty, _ := cmd.Flags().GetBool("pretty")
		outputFile, _ := cmd.Flags().GetString("output")
		return writeJSON(results, pretty, outputFile)
	},
}

func init() {
	internal.AddDateFilterFlags(discoverCmd)
	discoverCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	discoverCmd.Flags().Bool("pretty", false, "Format output as pretty JSON")
	rootCmd.AddCommand(discoverCmd)
}

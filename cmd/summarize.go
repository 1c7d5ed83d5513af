package cmd

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/rtzll/digestbot/internal"
)

// summarizeCmd represents the summarize command
var summarizeCmd = &cobra.Command{
	Use:   "summarize [YouTube URL or ID | article URL]",
	Short: "Summarize one video or article without touching the ledger",
	Example: `  # Summarize a YouTube video
  digestbot summarize "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  digestbot summarize tAP1eZYEuKA

  # Summarize an article and copy the summary
  digestbot summarize https://example.com/posts/hello --copy

  # Use a specific model and a custom prompt
  digestbot summarize tAP1eZYEuKA --model gpt-4o --prompt "tldr: {{.Content}}"

  # Also write the markdown file to output_dir
  digestbot summarize tAP1eZYEuKA --save`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.HandleLLMFlags(cmd, config); err != nil {
			return err
		}

		app := internal.NewApp(config, internal.WithLogger(logger))
		defer app.Close()

		target, title, text, err := resolveContent(cmd, app, args[0])
		if err != nil {
			return err
		}

		summary := app.Summarize(cmd.Context(), title, text)

		if save, _ := cmd.Flags().GetBool("save"); save {
			path, err := internal.NewMarkdownWriter(config.OutputDir).Persist(title, target.URL, summary, text)
			if err != nil {
				return err
			}
			logger.Info("summary saved", "file", path)
		}

		if copySummary, _ := cmd.Flags().GetBool("copy"); copySummary {
			if err := clipboard.WriteAll(summary); err != nil {
				return fmt.Errorf("copying summary to clipboard: %w", err)
			}
		}

		rendered, err := internal.RenderMarkdown(fmt.Sprintf("# %s\n\n%s\n", title, summary))
		if err != nil {
			fmt.Println(summary)
			return nil
		}
		fmt.Print(rendered)
		return nil
	},
}

func init() {
	internal.AddLLMFlags(summarizeCmd)
	summarizeCmd.Flags().Bool("copy", false, "Copy the summary to the clipboard")
	summarizeCmd.Flags().Bool("save", false, "Write the markdown file to output_dir")
	rootCmd.AddCommand(summarizeCmd)
}

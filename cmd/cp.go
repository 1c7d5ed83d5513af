package cmd

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/rtzll/digestbot/internal"
)

// cpCmd copies the transcript or article text to the system clipboard instead of printing to stdout.
var cpCmd = &cobra.Command{
	Use:   "cp [YouTube URL or ID | article URL]",
	Short: "Copy a video transcript or article text to the clipboard",
	Example: `  # Copy a video transcript
  digestbot cp "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  digestbot cp tAP1eZYEuKA

  # Copy the text of an article
  digestbot cp https://example.com/posts/hello`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := internal.NewApp(config, internal.WithLogger(logger))
		defer app.Close()

		target, _, text, err := resolveContent(cmd, app, args[0])
		if err != nil {
			return err
		}

		if err := clipboard.WriteAll(text); err != nil {
			return fmt.Errorf("copying %s to clipboard: %w", target.Type, err)
		}

		if !config.Quiet {
			fmt.Printf("%s text copied to clipboard\n", target.Type)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(cpCmd)
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/digestbot/internal"
)

// transcribeCmd represents the transcribe command
var transcribeCmd = &cobra.Command{
	Use:   "transcribe [YouTube URL or ID]",
	Short: "Get the transcript of a YouTube video",
	Long: `Get the transcript of a YouTube video.

Captions are tried in the preferred languages first, then machine-translated
captions, then speech-to-text on the downloaded audio.`,
	Example: `  # Print the transcript
  digestbot transcribe "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  digestbot transcribe tAP1eZYEuKA

  # Save transcript to file
  digestbot transcribe tAP1eZYEuKA -o transcript.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := internal.ParseTarget(args[0])
		if target.Type != internal.ContentTypeVideo {
			return fmt.Errorf("'%s' doesn't look like a YouTube URL or video ID", args[0])
		}
		cmd.SilenceUsage = true

		app := internal.NewApp(config, internal.WithLogger(logger))
		defer app.Close()

		transcript, err := app.Transcript(cmd.Context(), target.ID)
		if err != nil {
			return err
		}

		outputFile, _ := cmd.Flags().GetString("output")
		if outputFile != "" {
			return os.WriteFile(outputFile, []byte(transcript), 0644)
		}

		fmt.Println(transcript)
		return nil
	},
}

func init() {
	transcribeCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	rootCmd.AddCommand(transcribeCmd)
}

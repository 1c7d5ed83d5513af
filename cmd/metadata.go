package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/digestbot/internal"
)

// metadataCmd represents the metadata command
var metadataCmd = &cobra.Command{
	Use:   "metadata [YouTube URL or ID]",
	Short: "Get metadata and caption availability of a YouTube video",
	Example: `  # Get metadata from YouTube video
  digestbot metadata "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  digestbot metadata tAP1eZYEuKA

  # Save metadata to file
  digestbot metadata tAP1eZYEuKA -o metadata.json

  # Format output as pretty JSON
  digestbot metadata tAP1eZYEuKA --pretty`,
	Annotations: map[string]string{skipConfig: ""},
	Args:        cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := internal.ParseTarget(args[0])
		if target.Type != internal.ContentTypeVideo {
			return fmt.Errorf("'%s' doesn't look like a YouTube URL or video ID", args[0])
		}
		cmd.SilenceUsage = true

		cookies := ""
		if cfg, err := internal.LoadConfig(configFile); err == nil {
			cookies = cfg.CookiesFile
		}
		ytdlp := internal.NewYtDlp(internal.AppCacheDir(), cookies, logger)

		metadata, err := ytdlp.Metadata(cmd.Context(), target.ID)
		if err != nil {
			return err
		}

		pretty, _ := cmd.Flags().GetBool("pretty")
		outputFile, _ := cmd.Flags().GetString("output")
		return writeJSON(metadata, pretty, outputFile)
	},
}

// writeJSON prints v as JSON or writes it to outputFile
func writeJSON(v any, pretty bool, outputFile string) error {
	var jsonData []byte
	var err error
	if pretty {
		jsonData, err = json.MarshalIndent(v, "", "  ")
	} else {
		jsonData, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("error converting to JSON: %w", err)
	}

	if outputFile != "" {
		return os.WriteFile(outputFile, jsonData, 0644)
	}

	fmt.Println(string(jsonData))
	return nil
}

func init() {
	metadataCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	metadataCmd.Flags().Bool("pretty", false, "Format output as pretty JSON")
	rootCmd.AddCommand(metadataCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtzll/digestbot/internal"
)

// initCmd writes the sample config.json and prompt.txt
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a sample config.json and prompt.txt",
	Long: `Create a sample config.json and prompt.txt. Existing files are left untouched.

Fill in the values marked 請在這裡 and enable at least one source before running.`,
	Example: `  # Write into the current directory
  digestbot init

  # Write into $XDG_CONFIG_HOME/digestbot
  digestbot init --xdg`,
	Annotations: map[string]string{skipConfig: ""},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if useXDG, _ := cmd.Flags().GetBool("xdg"); useXDG {
			dir = internal.AppConfigDir()
		}
		if err := internal.EnsureDirs(dir); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		configPath, err := internal.EnsureDefaultConfig(dir)
		if err != nil {
			return err
		}
		promptPath, err := internal.EnsureDefaultPrompt(dir)
		if err != nil {
			return err
		}

		fmt.Printf("Config: %s\n", configPath)
		fmt.Printf("Prompt: %s\n", promptPath)
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("xdg", false, "Write into the XDG config directory instead of the working directory")
	rootCmd.AddCommand(initCmd)
}

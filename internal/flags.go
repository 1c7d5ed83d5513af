package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AddDateFilterFlags adds --year, --month and --date
func AddDateFilterFlags(cmd *cobra.Command) {
	cmd.Flags().Int("year", 0, "Only consider items published in this year (requires --month)")
	cmd.Flags().Int("month", 0, "Only consider items published in this month, 1-12 (requires --year)")
	cmd.Flags().Int("date", 0, "Only consider items published on this day of the month (requires --year and --month)")
}

// DateFilterFromFlags reads and validates the date filter flags
func DateFilterFromFlags(cmd *cobra.Command) (DateFilter, error) {
	var filter DateFilter
	var err error
	if filter.Year, err = cmd.Flags().GetInt("year"); err != nil {
		return filter, fmt.Errorf("failed to get year flag: %w", err)
	}
	if filter.Month, err = cmd.Flags().GetInt("month"); err != nil {
		return filter, fmt.Errorf("failed to get month flag: %w", err)
	}
	if filter.Day, err = cmd.Flags().GetInt("date"); err != nil {
		return filter, fmt.Errorf("failed to get date flag: %w", err)
	}
	return filter, filter.Validate()
}

// AddLLMFlags adds flags that override the summary model and prompt
func AddLLMFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("model", "m", "", "LLM model to use for summaries")
	cmd.Flags().StringP("prompt", "p", "", "Custom prompt (string or file path)")
}

// HandleLLMFlags applies --model and --prompt to config when set
func HandleLLMFlags(cmd *cobra.Command, config *Config) error {
	if flag := cmd.Flags().Lookup("model"); flag != nil && flag.Changed {
		model, err := cmd.Flags().GetString("model")
		if err != nil {
			return fmt.Errorf("failed to get model flag: %w", err)
		}
		config.LLMModel = model
	}

	if flag := cmd.Flags().Lookup("prompt"); flag != nil && flag.Changed {
		prompt, err := cmd.Flags().GetString("prompt")
		if err != nil {
			return fmt.Errorf("failed to get prompt flag: %w", err)
		}
		if prompt != "" {
			config.Prompt = prompt
		}
	}
	return nil
}

// HandleVerboseFlag processes the --verbose flag to update config
func HandleVerboseFlag(cmd *cobra.Command, config *Config) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	if verbose {
		config.Verbose = true
	}
	return nil
}

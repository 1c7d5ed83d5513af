package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rtzll/digestbot/internal"
)

// pathsCmd represents the paths command
var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show paths used by the application",
	Example: `  # Show all application paths
  digestbot paths`,
	Annotations: map[string]string{skipConfig: ""},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Config directory: %s\n", internal.AppConfigDir())
		fmt.Printf("Cache directory: %s\n", internal.AppCacheDir())

		cfg, err := internal.LoadConfig(configFile)
		if err != nil {
			fmt.Printf("Config file: not loaded (%v)\n", err)
			return
		}
		fmt.Printf("Config file: %s\n", absPath(cfg.ConfigFile))
		fmt.Printf("Output directory: %s\n", absPath(cfg.OutputDir))
		if cfg.LedgerBackend == "sqlite" {
			fmt.Printf("Ledger database: %s\n", absPath(cfg.LedgerDB))
		} else {
			fmt.Printf("Processed ids: %s\n", absPath(cfg.ProcessedIDsFile))
			fmt.Printf("Failed ids: %s\n", absPath(cfg.FailedIDsFile))
		}
		fmt.Printf("Temp audio directory: %s\n", cfg.TempDir)
		fmt.Printf("MCP log: %s\n", internal.MCPLogPath(cfg))
	},
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func init() {
	rootCmd.AddCommand(pathsCmd)
}

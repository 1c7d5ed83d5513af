package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtzll/digestbot/internal"
)

var (
	config     *internal.Config
	logger     *slog.Logger
	configFile string
	dateFilter internal.DateFilter
)

// skipConfig marks commands that run without a config file
const skipConfig = "skip-config"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "digestbot",
	Short: "Summarize new YouTube videos and RSS articles and broadcast them to LINE",
	Long: `digestbot polls the YouTube channels and RSS feeds listed in config.json.

For every new item it gets a transcript (captions, translated captions or
speech-to-text) or the article text, asks an LLM for a bullet summary in
Traditional Chinese, broadcasts it through the LINE Messaging API and writes
a markdown file. Processed and failed ids are kept in a ledger so each item
is broadcast once and failures are retried on the next run.`,
	Example: `  # Check every enabled source for new items
  digestbot

  # Only consider items published in June 2025 (UTC)
  digestbot --year 2025 --month 6

  # Only consider items published on 2025-06-15 (UTC)
  digestbot --year 2025 --month 6 --date 15`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		logger = internal.NewLogger(os.Stderr, verbose)
		slog.SetDefault(logger)

		// usage errors are reported before a missing config is
		if cmd == cmd.Root() {
			filter, err := internal.DateFilterFromFlags(cmd)
			if err != nil {
				return err
			}
			dateFilter = filter
		}

		if _, ok := cmd.Annotations[skipConfig]; ok {
			return nil
		}
		return loadConfig(cmd)
	},
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		app := internal.NewApp(config, internal.WithLogger(logger))
		defer func() {
			if err := app.Close(); err != nil {
				logger.Warn("closing ledger", "error", err)
			}
		}()

		report, err := app.Run(cmd.Context(), dateFilter)
		if err != nil {
			return err
		}
		if !config.Quiet {
			fmt.Printf("Processed %d new item(s), %d failed, %d already processed\n",
				report.Processed, report.Checks.Failed+report.PersistFailed, report.Checks.Skipped)
		}
		return nil
	},
}

// loadConfig reads config.json and applies flag overrides
func loadConfig(cmd *cobra.Command) error {
	var err error
	config, err = internal.LoadConfig(configFile)
	if err != nil {
		if errors.Is(err, internal.ErrConfigNotFound) {
			return fmt.Errorf("%w (run 'digestbot init' to create one)", err)
		}
		return err
	}

	if err := internal.HandleVerboseFlag(cmd, config); err != nil {
		return err
	}
	quiet, _ := cmd.Flags().GetBool("quiet")
	config.Quiet = config.Quiet || quiet

	logger = internal.NewLogger(os.Stderr, config.Verbose)
	slog.SetDefault(logger)
	logger.Debug("config loaded", "file", config.ConfigFile, "sources", len(config.Sources))
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal. Cleaning up and shutting down...")

		// Cancel the main context to signal all operations to stop
		cancel()

		if config == nil {
			os.Exit(1)
		}

		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cleanupCancel()

		cleanupDone := make(chan struct{})
		go func() {
			if err := internal.CleanupTempDir(config.TempDir, logger); err != nil {
				fmt.Fprintf(os.Stderr, "Error cleaning up temporary files: %v\n", err)
			}
			close(cleanupDone)
		}()

		select {
		case <-cleanupDone:
		case <-cleanupCtx.Done():
			fmt.Fprintln(os.Stderr, "Warning: Cleanup timed out, forcing exit")
		}

		os.Exit(1)
	}()

	rootCmd.SetContext(ctx)

	return rootCmd.Execute()
}

func init() {
	internal.AddDateFilterFlags(rootCmd)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for debugging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default is ./config.json, then $XDG_CONFIG_HOME/digestbot/config.json)")
}

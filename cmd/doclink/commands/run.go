package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/benjaminschreck/doclink/pkg/doclink"
)

var (
	maxConcurrent int
	dryRun        bool
)

var runCmd = &cobra.Command{
	Use:   "run [paths...]",
	Short: "Process documents",
	Long: `Process each given document: back it up, resolve and rewrite its
hyperlinks, apply configured text replacements, optimize text, validate,
and save. Failed documents are restored from their backup.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if maxConcurrent > 0 {
			cfg.Processing.MaxConcurrentDocuments = maxConcurrent
		}

		logger := doclink.NewLogger(os.Stderr, doclink.ParseLogLevel(cfg.Logging.Level))

		if dryRun {
			return describeBatch(cfg, args)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client := doclink.NewLookupClient(cfg.Api.BaseURL, logger)
		proc := doclink.NewProcessor(cfg, logger, client)
		sink := doclink.NewConsoleReporter()
		driver := doclink.NewBatchDriver(proc, cfg.EffectiveConcurrency(), sink)

		results := driver.Run(ctx, args)

		processed, recovered, failed := 0, 0, 0
		for _, result := range results {
			switch result.Status {
			case doclink.StatusProcessed:
				processed++
			case doclink.StatusRecovered:
				recovered++
			case doclink.StatusFailed:
				failed++
			}
			printResult(cmd, result)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%d processed, %d recovered, %d failed\n", processed, recovered, failed)
		if failed > 0 {
			return fmt.Errorf("%d documents failed", failed)
		}
		return ctx.Err()
	},
}

func printResult(cmd *cobra.Command, result *doclink.DocumentResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\t%s\t%d changes\n", result.Path, result.Status, len(result.Changes))
	if result.Warning != "" {
		fmt.Fprintf(out, "\twarning: %s\n", result.Warning)
	}
	for _, change := range result.Changes {
		fmt.Fprintf(out, "\t%s\n", change)
	}
}

func describeBatch(cfg *doclink.Config, paths []string) error {
	fmt.Printf("would process %d documents with %d workers\n", len(paths), cfg.EffectiveConcurrency())
	for _, path := range paths {
		fmt.Printf("  %s\n", path)
	}
	if cfg.Api.BaseURL == "" {
		fmt.Println("resolver: simulation mode (no api.base_url configured)")
	} else {
		fmt.Printf("resolver: %s\n", cfg.Api.BaseURL)
	}
	fmt.Printf("replacement rules: %d enabled\n", len(cfg.EnabledRules()))
	return nil
}

// loadConfig layers the file config with viper-bound flag and environment
// overrides.
func loadConfig() (*doclink.Config, error) {
	cfg, err := doclink.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if v := viper.GetString("logging.level"); v != "" {
		cfg.Logging.Level = v
	}
	if v := viper.GetString("api.base_url"); v != "" {
		cfg.Api.BaseURL = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func init() {
	runCmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 0, "maximum concurrent document sessions")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "describe what would be processed without touching any file")
	rootCmd.AddCommand(runCmd)
}

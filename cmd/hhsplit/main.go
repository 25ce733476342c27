package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zedaster/UrfuHhParser/internal/shared/config"
	"github.com/zedaster/UrfuHhParser/internal/shared/logging"
	"github.com/zedaster/UrfuHhParser/internal/splitter"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hhsplit [flags] <input-glob>...",
		Short: "Split hh.ru vacancy tables into per-year files",
		Long: `Reads vacancy CSV files, cleans and validates every row in parallel and
writes one table per publication year together with a currency frequency
table. Settings come from hhsplit.yaml, HHSPLIT_* variables and flags.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	flags := cmd.Flags()
	flags.String("config", "", "Path to config file (default ./config/hhsplit.yaml or ./hhsplit.yaml)")
	flags.String("strategy", "", "Timestamp parsing strategy: library, pattern or custom")
	flags.Int("workers", 0, "Number of parallel workers (default NumCPU)")
	flags.Int("chunk-size", 0, "Rows per chunk handed to a worker")
	flags.String("timestamp-col", "", "Column holding the publication timestamp")
	flags.String("currency-col", "", "Column holding the salary currency")
	flags.StringSlice("clean", nil, "Columns to strip of markup and whitespace")
	flags.StringSlice("require", nil, "Columns that must be non-empty after cleaning")
	flags.StringP("output", "o", "", "Output directory")
	flags.String("format", "", "Per-year output format: csv or parquet")
	flags.Bool("xlsx", false, "Also write an XLSX frequency and summary workbook")
	flags.Bool("rejects", false, "Also write rejected rows with their reason")
	flags.Int("threshold", 0, "Report currencies seen more often than this")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: json or text")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.LoadPipeline(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting hhsplit",
		"inputs", args,
		"strategy", cfg.TimestampStrategy,
		"workers", cfg.Workers,
		"chunk_size", cfg.ChunkSize,
		"output", cfg.Output.Dir,
		"format", cfg.Output.Format,
	)

	reports, err := splitter.NewService(cfg, logger).SplitFiles(ctx, args)
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("Interrupted", "completed_files", len(reports))
		}
		return err
	}

	logger.Info("All files split", "files", len(reports))
	return nil
}


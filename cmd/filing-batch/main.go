package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tenkanalyzer/tenk-analyzer/internal/async"
	"github.com/tenkanalyzer/tenk-analyzer/internal/common"
	"github.com/tenkanalyzer/tenk-analyzer/internal/extract"
	"github.com/tenkanalyzer/tenk-analyzer/internal/ingest"
	"github.com/tenkanalyzer/tenk-analyzer/internal/llm/deepseek"
	"github.com/tenkanalyzer/tenk-analyzer/internal/pipeline"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir      = flag.String("dir", "", "directory of filings to analyze (required)")
		outDir   = flag.String("out-dir", "", "directory for per-filing JSON reports (defaults to <dir>/analysis)")
		workers  = flag.Int("workers", 4, "number of analysis workers")
		watch    = flag.Bool("watch", false, "keep watching the directory for new filings")
		debounce = flag.Duration("debounce", 500*time.Millisecond, "watch event settle time")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: -dir is required\n")
		os.Exit(1)
	}
	if *outDir == "" {
		*outDir = filepath.Join(*dir, "analysis")
	}

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Error("failed to create output directory", "dir", *outDir, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractor := extract.NewPDFExtractor(logger)
	client := deepseek.NewClient(deepseek.Config{
		APIKey:       cfg.LLM.APIKey,
		BaseURL:      cfg.LLM.BaseURL,
		Model:        cfg.LLM.Model,
		Temperature:  cfg.LLM.Temperature,
		MaxTokens:    cfg.LLM.MaxTokens,
		Timeout:      cfg.LLM.Timeout,
		MaxAttempts:  cfg.LLM.MaxAttempts,
		RetryBackoff: cfg.LLM.RetryBackoff,
	}, logger)
	analyzer := pipeline.NewAnalyzer(cfg.Pipeline, extractor, client, logger)
	ingestor := ingest.NewIngestor(analyzer, *outDir, logger)

	queue := async.NewFilingQueue(ingestor, logger,
		async.WithWorkers(*workers),
		async.WithQueueSize(512),
		async.WithProcessTimeout(3*time.Minute),
	)

	logger.Info("scanning for filings", "dir", *dir)
	paths, err := ingestor.CollectFilings(*dir, true)
	if err != nil {
		logger.Error("failed to scan directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	for _, p := range paths {
		if err := queue.Enqueue(ctx, async.Job{Path: p}); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, async.ErrQueueClosed) {
				break
			}
			logger.Error("failed to enqueue filing", "path", p, "error", err)
		}
	}

	if *watch {
		evCh, errCh, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:    []string{*dir},
			Debounce: *debounce,
		})
		if err != nil {
			logger.Error("failed to start watcher", "dir", *dir, "error", err)
			os.Exit(1)
		}
		go func() {
			for range errCh {
				// already logged by the watcher; keep the channel drained
			}
		}()

		logger.Info("watching for new filings", "dir", *dir, "debounce", debounce.String())
		for p := range evCh {
			if err := queue.Enqueue(ctx, async.Job{Path: p}); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, async.ErrQueueClosed) {
					break
				}
				logger.Error("failed to enqueue filing", "path", p, "error", err)
			}
		}
	}

	queue.Shutdown(context.Background())

	stats := ingestor.Stats()
	logger.Info("batch complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"analyzed", stats.Analyzed,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
		"out_dir", *outDir,
	)

	fmt.Printf("Batch analysis complete!\n")
	fmt.Printf("- Filings matched: %d\n", stats.Matched)
	fmt.Printf("- Analyzed: %d\n", stats.Analyzed)
	fmt.Printf("- Deduplicated: %d\n", stats.Deduplicated)
	fmt.Printf("- Failures: %d\n", stats.Failed)
	fmt.Printf("- Reports: %s\n", *outDir)
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tenkanalyzer/tenk-analyzer/internal/common"
	"github.com/tenkanalyzer/tenk-analyzer/internal/entity"
	"github.com/tenkanalyzer/tenk-analyzer/internal/export"
	"github.com/tenkanalyzer/tenk-analyzer/internal/extract"
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
		file     = flag.String("file", "", "filing to analyze (required)")
		out      = flag.String("out", "-", "report JSON path, - for stdout")
		xlsx     = flag.String("xlsx", "", "also write an XLSX workbook to this path")
		chunks   = flag.Int("chunks", 0, "analyze up to N chunks instead of one excerpt")
		maxInput = flag.Int("max-input", 0, "override the per-request input limit")
	)
	flag.Parse()

	if *file == "" {
		printError("Error: -file is required\n")
		os.Exit(1)
	}

	_ = godotenv.Load()

	// stdout carries the report, so logs go to stderr
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *chunks > 0 {
		cfg.Pipeline.MaxChunks = *chunks
	}
	if *maxInput > 0 {
		cfg.Pipeline.MaxInputLen = *maxInput
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	content, err := os.ReadFile(*file)
	if err != nil {
		logger.Error("failed to read filing", "file", *file, "error", err)
		os.Exit(1)
	}

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

	start := time.Now()
	report, err := analyzer.Analyze(ctx, entity.Document{
		Filename: filepath.Base(*file),
		Content:  content,
	})
	if err != nil {
		logger.Error("analysis failed",
			"file", *file,
			"code", common.ErrorCode(err),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		os.Exit(1)
	}

	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Error("failed to encode report", "error", err)
		os.Exit(1)
	}
	if *out == "" || *out == "-" {
		fmt.Println(string(b))
	} else {
		if err := os.WriteFile(*out, b, 0o644); err != nil {
			logger.Error("failed to write report", "path", *out, "error", err)
			os.Exit(1)
		}
		logger.Info("report written", "path", *out)
	}

	if *xlsx != "" {
		svc := export.NewService(logger)
		if err := svc.SaveReportsXLSX(*xlsx, []pipeline.Report{report}); err != nil {
			logger.Error("failed to write workbook", "path", *xlsx, "error", err)
			os.Exit(1)
		}
	}
}

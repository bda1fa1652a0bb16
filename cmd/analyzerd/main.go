package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tenkanalyzer/tenk-analyzer/internal/common"
	"github.com/tenkanalyzer/tenk-analyzer/internal/extract"
	"github.com/tenkanalyzer/tenk-analyzer/internal/llm/deepseek"
	"github.com/tenkanalyzer/tenk-analyzer/internal/pipeline"
	"github.com/tenkanalyzer/tenk-analyzer/internal/server"
)

func main() {
	// Load .env if present (ignore error if not found)
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

	srv := server.NewServer(cfg.Server, analyzer, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/tenkanalyzer/tenk-analyzer/internal/common"
	"github.com/tenkanalyzer/tenk-analyzer/internal/entity"
	"github.com/tenkanalyzer/tenk-analyzer/internal/extract"
	"github.com/tenkanalyzer/tenk-analyzer/internal/llm"
	"github.com/tenkanalyzer/tenk-analyzer/internal/truncate"
)

// Report is the outcome of one filing analysis.
type Report struct {
	Filename    string                `json:"filename"`
	Analysis    entity.AnalysisResult `json:"analysis"`
	IsTruncated bool                  `json:"is_truncated"`
	Outcome     llm.ParseOutcome      `json:"parse_outcome"`
	Pages       int                   `json:"pages,omitempty"`
	Chunks      int                   `json:"chunks,omitempty"`
	ElapsedMS   int64                 `json:"elapsed_ms,omitempty"`
}

// Analyzer sequences extract, truncate, prompt, complete and parse behind one
// entry point. It is stateless per call: the only shared state is read-only
// config, the logger, and the client's connection pool, so one instance serves
// concurrent requests.
type Analyzer struct {
	Cfg       common.PipelineConfig
	Extractor extract.TextExtractor
	Client    llm.CompletionClient
	Log       *slog.Logger
}

func NewAnalyzer(cfg common.PipelineConfig, extractor extract.TextExtractor, client llm.CompletionClient, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxInputLen <= 0 {
		cfg.MaxInputLen = 32000
	}
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = 1
	}
	if cfg.MaxItemsPerCategory <= 0 {
		cfg.MaxItemsPerCategory = 10
	}
	return &Analyzer{Cfg: cfg, Extractor: extractor, Client: client, Log: logger}
}

// Analyze runs the full pipeline for one uploaded document. Stage failures
// short-circuit and are returned unchanged, so callers can classify them with
// errors.Is against the sentinel kinds.
func (a *Analyzer) Analyze(ctx context.Context, doc entity.Document) (Report, error) {
	ctx, reqID := common.EnsureRequestID(ctx)
	start := time.Now()

	a.Log.Info("pipeline.start",
		"req_id", reqID,
		"filename", doc.Filename,
		"bytes", len(doc.Content),
	)

	ext, err := a.Extractor.Extract(ctx, doc)
	if err != nil {
		a.Log.Error("pipeline.extract.failed", "req_id", reqID, "filename", doc.Filename, "error", err)
		return Report{}, err
	}
	a.Log.Info("pipeline.extract.ok",
		"req_id", reqID,
		"pages", ext.Pages,
		"chars", len(ext.Text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	var report Report
	if a.Cfg.MaxChunks > 1 {
		report, err = a.analyzeChunked(ctx, reqID, ext.Text)
	} else {
		report, err = a.analyzeSingle(ctx, reqID, ext.Text)
	}
	if err != nil {
		return Report{}, err
	}

	report.Filename = doc.Filename
	report.Pages = ext.Pages
	report.ElapsedMS = time.Since(start).Milliseconds()

	a.Log.Info("pipeline.ok",
		"req_id", reqID,
		"filename", doc.Filename,
		"outcome", report.Outcome.String(),
		"truncated", report.IsTruncated,
		"items", report.Analysis.ItemCount(),
		"elapsed_ms", report.ElapsedMS,
	)
	return report, nil
}

// analyzeSingle is the default mode: one bounded excerpt, one completion. An
// empty extraction still goes to the model; reporting nothing is the model's
// call to make, not ours.
func (a *Analyzer) analyzeSingle(ctx context.Context, reqID, text string) (Report, error) {
	bounded, truncated := truncate.Text(text, a.Cfg.MaxInputLen)
	if truncated {
		a.Log.Warn("pipeline.truncated",
			"req_id", reqID,
			"from_chars", len(text),
			"to_chars", len(bounded),
		)
	}

	analysis, outcome, err := a.analyzeExcerpt(ctx, reqID, bounded)
	if err != nil {
		return Report{}, err
	}
	return Report{Analysis: analysis, IsTruncated: truncated, Outcome: outcome, Chunks: 1}, nil
}

// analyzeChunked splits the text into budget-sized chunks, analyzes each in
// order and consolidates the results. With no extractable text there is
// nothing to ask the model, so the empty result is returned directly.
func (a *Analyzer) analyzeChunked(ctx context.Context, reqID, text string) (Report, error) {
	chunks, truncated := truncate.Chunks(text, a.Cfg.MaxInputLen, a.Cfg.MaxChunks)
	if truncated {
		a.Log.Warn("pipeline.truncated",
			"req_id", reqID,
			"from_chars", len(text),
			"chunks", len(chunks),
		)
	}
	if len(chunks) == 0 {
		return Report{Analysis: entity.NewAnalysisResult(), Outcome: llm.StrictlyParsed}, nil
	}

	results := make([]entity.AnalysisResult, 0, len(chunks))
	outcome := llm.StrictlyParsed
	for i, chunk := range chunks {
		a.Log.Info("pipeline.chunk.start",
			"req_id", reqID,
			"chunk", i+1,
			"of", len(chunks),
			"chars", len(chunk),
		)
		analysis, chunkOutcome, err := a.analyzeExcerpt(ctx, reqID, chunk)
		if err != nil {
			return Report{}, err
		}
		if chunkOutcome == llm.LenientlyRecovered {
			outcome = llm.LenientlyRecovered
		}
		results = append(results, analysis)
	}

	merged := Consolidate(results, a.Cfg.MaxItemsPerCategory)
	return Report{Analysis: merged, IsTruncated: truncated, Outcome: outcome, Chunks: len(chunks)}, nil
}

// analyzeExcerpt runs prompt, completion and parse for one bounded excerpt.
func (a *Analyzer) analyzeExcerpt(ctx context.Context, reqID, bounded string) (entity.AnalysisResult, llm.ParseOutcome, error) {
	prompt := llm.BuildPrompt(bounded)

	completion, err := a.Client.Complete(ctx, prompt)
	if err != nil {
		a.Log.Error("pipeline.model.failed", "req_id", reqID, "error", err)
		return entity.AnalysisResult{}, llm.Unrecoverable, err
	}
	a.Log.Info("pipeline.model.ok", "req_id", reqID, "completion_chars", len(completion))

	analysis, outcome, err := llm.Parse(completion, a.Log)
	if err != nil {
		a.Log.Error("pipeline.parse.failed", "req_id", reqID, "error", err)
		return entity.AnalysisResult{}, outcome, err
	}
	a.Log.Info("pipeline.parse.ok",
		"req_id", reqID,
		"outcome", outcome.String(),
		"items", analysis.ItemCount(),
	)
	return analysis, outcome, nil
}

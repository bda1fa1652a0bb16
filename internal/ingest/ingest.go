package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tenkanalyzer/tenk-analyzer/constants"
	"github.com/tenkanalyzer/tenk-analyzer/internal/entity"
	"github.com/tenkanalyzer/tenk-analyzer/internal/pipeline"
)

// FileResult is the per-file ingest outcome.
type FileResult struct {
	Path    string
	Status  constants.JobStatus
	HashHex string
	OutPath string
	Err     string
}

// BatchStats summarizes a batch run.
type BatchStats struct {
	Scanned      uint32
	Matched      uint32
	Analyzed     uint32
	Deduplicated uint32
	Failed       uint32
}

// Analyzer is the behavior the ingestor depends on.
type Analyzer interface {
	Analyze(ctx context.Context, doc entity.Document) (pipeline.Report, error)
}

// Ingestor reads filings from the local filesystem, skips content it has
// already analyzed in this run, and writes one JSON report per file.
type Ingestor struct {
	analyzer Analyzer
	outDir   string
	logger   *slog.Logger

	mu    sync.Mutex
	seen  map[string]string // content hash -> first path
	stats BatchStats
}

func NewIngestor(analyzer Analyzer, outDir string, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		analyzer: analyzer,
		outDir:   outDir,
		logger:   logger,
		seen:     make(map[string]string),
	}
}

// IngestPath analyzes a single file. Duplicate content is skipped, and any
// failure is reflected in both the result and the returned error so callers
// can log and move on.
func (in *Ingestor) IngestPath(ctx context.Context, path string) (FileResult, error) {
	out := FileResult{Path: path, Status: constants.JobStatusFailed}

	abs, err := filepath.Abs(path)
	if err != nil {
		return in.fail(out, fmt.Errorf("abs path: %w", err))
	}
	out.Path = abs

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if !AllowedExt(ext) {
		return in.fail(out, fmt.Errorf("unsupported or missing extension: %q", ext))
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return in.fail(out, fmt.Errorf("read: %w", err))
	}

	sum := sha256.Sum256(content)
	out.HashHex = hex.EncodeToString(sum[:])

	if first, ok := in.markSeen(out.HashHex, abs); !ok {
		out.Status = constants.JobStatusSkipped
		in.logger.Info("ingest.dedup", "path", abs, "first_path", first, "hash", out.HashHex)
		return out, nil
	}

	doc := entity.Document{
		Filename:  filepath.Base(abs),
		MediaType: constants.MediaTypePDF,
		Content:   content,
	}
	report, err := in.analyzer.Analyze(ctx, doc)
	if err != nil {
		return in.fail(out, err)
	}

	if in.outDir != "" {
		outPath, err := in.saveReport(abs, report)
		if err != nil {
			return in.fail(out, err)
		}
		out.OutPath = outPath
	}

	out.Status = constants.JobStatusSucceeded
	in.mu.Lock()
	in.stats.Analyzed++
	in.mu.Unlock()
	return out, nil
}

// Stats returns a snapshot of the counters accumulated so far.
func (in *Ingestor) Stats() BatchStats {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.stats
}

func (in *Ingestor) fail(out FileResult, err error) (FileResult, error) {
	out.Status = constants.JobStatusFailed
	out.Err = err.Error()
	in.mu.Lock()
	in.stats.Failed++
	in.mu.Unlock()
	return out, err
}

// markSeen records the hash and reports whether this content is new. When the
// hash was already present it returns the path that claimed it first.
func (in *Ingestor) markSeen(hash, path string) (string, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if first, ok := in.seen[hash]; ok {
		in.stats.Deduplicated++
		return first, false
	}
	in.seen[hash] = path
	return "", true
}

func (in *Ingestor) saveReport(srcPath string, report pipeline.Report) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	outPath := filepath.Join(in.outDir, stem+".json")

	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(outPath, b, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	in.logger.Info("ingest.report.saved", "path", outPath, "bytes", len(b))
	return outPath, nil
}

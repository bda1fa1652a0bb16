package extract

import (
	"context"
	"time"

	"github.com/tenkanalyzer/tenk-analyzer/internal/entity"
)

// TextExtractor is Stage 1: document bytes -> plain text.
type TextExtractor interface {
	Extract(ctx context.Context, doc entity.Document) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text     string
	Pages    int
	Method   string // "pdf-text"
	Duration time.Duration
	Warnings []string
}

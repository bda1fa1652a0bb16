package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/tenkanalyzer/tenk-analyzer/constants"
	"github.com/tenkanalyzer/tenk-analyzer/internal/common"
	"github.com/tenkanalyzer/tenk-analyzer/internal/entity"
)

// PDFExtractor recovers the text layer of a PDF held in memory. Scanned
// documents without a text layer extract to empty text, which is valid
// downstream input rather than an error.
type PDFExtractor struct {
	log *slog.Logger
}

func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{log: logger}
}

// Extract validates that doc is a PDF, walks its pages in order, normalizes
// each page's whitespace, and joins pages with a single newline so downstream
// truncation cannot fuse unrelated pages into one run-on token. Corrupt or
// encrypted input fails with ExtractionFailed; any other media type fails
// with UnsupportedFormat before a reader is constructed.
func (e *PDFExtractor) Extract(ctx context.Context, doc entity.Document) (TextExtractionResult, error) {
	start := time.Now()
	var res TextExtractionResult

	if err := ValidateDocument(doc); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	text, pages, warnings, err := extractPages(doc.Content)
	if err != nil {
		e.log.Error("extract.pdf.failed", "filename", doc.Filename, "error", err)
		return res, common.ExtractionFailed("could not parse PDF", err)
	}

	res = TextExtractionResult{
		Text:     text,
		Pages:    pages,
		Method:   "pdf-text",
		Duration: time.Since(start),
		Warnings: warnings,
	}
	e.log.Info("extract.pdf.ok",
		"filename", doc.Filename,
		"pages", res.Pages,
		"chars", len(res.Text),
		"warnings", len(res.Warnings),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// ValidateDocument fails fast with UnsupportedFormat unless doc looks like a
// PDF: the declared media type must be PDF (or absent/generic with a .pdf
// filename), and the content must carry the %PDF- signature.
func ValidateDocument(doc entity.Document) error {
	declared := strings.ToLower(strings.TrimSpace(doc.MediaType))
	switch declared {
	case constants.MediaTypePDF:
	case "", "application/octet-stream":
		if constants.NormalizeExt(filepath.Ext(doc.Filename)) != "pdf" {
			return common.UnsupportedFormat(fmt.Sprintf("file %q is not a PDF", doc.Filename))
		}
	default:
		return common.UnsupportedFormat(fmt.Sprintf("media type %q is not %s", declared, constants.MediaTypePDF))
	}
	if !constants.LooksLikePDF(doc.Content) {
		return common.UnsupportedFormat("content does not carry the %PDF- signature")
	}
	return nil
}

// extractPages walks the document page by page. The underlying reader panics
// on some malformed inputs, so the walk runs behind a recover that converts
// the panic into an error.
func extractPages(content []byte) (text string, pages int, warnings []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", 0, nil, fmt.Errorf("open pdf: %w", err)
	}

	pages = reader.NumPage()
	var b strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, perr := page.GetPlainText(nil)
		if perr != nil {
			// image-only or undecodable page; keep going with the rest
			warnings = append(warnings, fmt.Sprintf("page %d: %v", i, perr))
			continue
		}
		pageText = NormalizePage(pageText)
		if pageText == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(pageText)
	}
	return b.String(), pages, warnings, nil
}

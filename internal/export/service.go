package export

import (
	"fmt"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/tenkanalyzer/tenk-analyzer/constants"
	"github.com/tenkanalyzer/tenk-analyzer/internal/pipeline"
)

// Excelize rejects cell values above 32767 characters; stay well under it.
const maxCellChars = 32000

// Service renders analysis reports into XLSX workbooks.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportReportsXLSX returns an XLSX workbook (as bytes) with one row per
// analysis item, in category order, grouped by filename. A report whose input
// was cut before analysis gets an extra marker row after its items.
func (s *Service) ExportReportsXLSX(reports []pipeline.Report) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Analysis"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 && activeIndex != index {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Filename",
		"Category",
		"#",
		"Item",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	items := 0
	write := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
	for _, rep := range reports {
		for _, cat := range constants.Categories() {
			for i, item := range rep.Analysis.Items(cat) {
				write(1, rep.Filename)
				write(2, cat.Title())
				write(3, i+1)
				write(4, capCell(item, maxCellChars))
				row++
				items++
			}
		}

		if rep.IsTruncated {
			write(1, rep.Filename)
			write(2, "Truncated")
			write(4, "input exceeded the analysis window; items cover the leading excerpt")
			row++
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 32) // filename
	_ = f.SetColWidth(sheet, "B", "B", 24) // category
	_ = f.SetColWidth(sheet, "C", "C", 6)  // index
	_ = f.SetColWidth(sheet, "D", "D", 90) // item

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"files", len(reports),
		"items", items,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// SaveReportsXLSX renders the reports and writes the workbook to path.
func (s *Service) SaveReportsXLSX(path string, reports []pipeline.Report) error {
	b, err := s.ExportReportsXLSX(reports)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Info("export.xlsx.saved", "path", path, "bytes", len(b))
	return nil
}

func capCell(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

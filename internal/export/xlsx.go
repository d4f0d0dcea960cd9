package export

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pdfjson/internal/output"
)

const (
	sheetName = "Pages"
	// excel rejects longer cell values
	maxCellChars = 32767
)

var headers = []any{"Page", "Method", "Structured Text", "OCR Text"}

// XLSXWriter streams page records into a single-sheet workbook.
type XLSXWriter struct {
	path   string
	logger *slog.Logger

	f     *excelize.File
	sw    *excelize.StreamWriter
	row   int
	start time.Time
}

var _ output.Sink = (*XLSXWriter)(nil)

func NewXLSXWriter(path string, logger *slog.Logger) *XLSXWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXWriter{path: path, logger: logger}
}

func (x *XLSXWriter) Begin() error {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		_ = f.Close()
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("xlsx stream: %w", err)
	}

	// Widen a few columns (must precede the first row)
	_ = sw.SetColWidth(1, 1, 8)  // page
	_ = sw.SetColWidth(2, 2, 10) // method
	_ = sw.SetColWidth(3, 4, 80) // text

	if err := sw.SetRow("A1", headers); err != nil {
		_ = f.Close()
		return fmt.Errorf("xlsx header: %w", err)
	}
	x.f, x.sw, x.row, x.start = f, sw, 2, time.Now()
	return nil
}

func (x *XLSXWriter) WritePage(rec output.PageRecord) error {
	if x.sw == nil {
		return errors.New("xlsx writer not started")
	}
	cell, err := excelize.CoordinatesToCellName(1, x.row)
	if err != nil {
		return err
	}
	values := []any{
		rec.PageNumber,
		rec.Method(),
		truncate(rec.StructuredText, maxCellChars),
		truncate(rec.OCRText, maxCellChars),
	}
	if err := x.sw.SetRow(cell, values); err != nil {
		return fmt.Errorf("xlsx row %d: %w", rec.PageNumber, err)
	}
	x.row++
	return nil
}

func (x *XLSXWriter) Close() error {
	if x.f == nil {
		return nil
	}
	defer x.release()
	if err := x.sw.Flush(); err != nil {
		return fmt.Errorf("xlsx flush: %w", err)
	}
	if err := x.f.SaveAs(x.path); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	x.logger.Info("export.xlsx.ok",
		"path", x.path,
		"rows", x.row-2,
		"elapsed_ms", time.Since(x.start).Milliseconds(),
	)
	return nil
}

// Abort discards the workbook; nothing is written to disk.
func (x *XLSXWriter) Abort() error {
	if x.f == nil {
		return nil
	}
	x.release()
	return nil
}

func (x *XLSXWriter) release() {
	_ = x.f.Close()
	x.f, x.sw = nil, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

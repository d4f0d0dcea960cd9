package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joseph-ayodele/pdfjson/internal/common"
	"github.com/joseph-ayodele/pdfjson/internal/ocr"
	"github.com/joseph-ayodele/pdfjson/internal/ocr/tesseract"
)

// runocr prints the OCR text of one page, skipping structured-text extraction.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 3 {
		logger.Error("usage", "cmd", "runocr <pdf> <page-number>")
		os.Exit(2)
	}
	path := os.Args[1]
	page, err := strconv.Atoi(os.Args[2])
	if err != nil || page < 1 {
		logger.Error("invalid page number (must be >= 1)", "arg", os.Args[2])
		os.Exit(2)
	}

	cfg, err := common.LoadConfig("")
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	engine := tesseract.NewEngine(tesseract.Config{Lang: cfg.OCR.Lang, TessdataDir: cfg.OCR.TessdataDir})
	extractor := ocr.NewExtractor(ocr.Config{Pdftoppm: cfg.OCR.Pdftoppm}, engine, logger)

	start := time.Now()
	text, err := extractor.OCRPage(ctx, path, page-1)
	dur := time.Since(start)
	if err != nil {
		logger.Error("ocr failed", "path", path, "page", page, "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	logger.Info("ocr OK",
		"path", path,
		"page", page,
		"bytes", len(text),
		"duration_ms", dur.Milliseconds(),
	)
	fmt.Print(text)
}

// Package ocr is the fallback for pages that carry no structured text: the
// page is rendered to an image with pdftoppm and handed to a Recognizer.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/pdfjson/internal/extract"
)

const (
	// RenderDPI is the rasterization resolution for a page.
	RenderDPI = 200
	// RecognitionDPI is the fixed resolution hint given to the OCR engine.
	RecognitionDPI = 150
)

// Recognizer turns an image into text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

type Config struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	DPI      int    // rasterization DPI, default RenderDPI
}

type Extractor struct {
	cfg        Config
	runner     Runner
	recognizer Recognizer
	logger     *slog.Logger
}

var _ extract.PageOCR = (*Extractor)(nil)

func NewExtractor(cfg Config, recognizer Recognizer, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = RenderDPI
	}
	return &Extractor{cfg: cfg, runner: NewExecRunner(logger), recognizer: recognizer, logger: logger}
}

// OCRPage renders the zero-based page index of pdfPath and returns the recognized text.
func (e *Extractor) OCRPage(ctx context.Context, pdfPath string, index int) (string, error) {
	if index < 0 {
		return "", fmt.Errorf("invalid page index %d", index)
	}
	start := time.Now()
	e.logger.Debug("starting page ocr", "path", pdfPath, "page", index+1, "dpi", e.cfg.DPI)

	img, err := e.renderPage(ctx, pdfPath, index)
	if err != nil {
		return "", err
	}
	img, err = toGrayPNG(img)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", index+1, err)
	}

	txt, err := e.recognizer.Recognize(ctx, img)
	if err != nil {
		return "", fmt.Errorf("recognize page %d: %w", index+1, err)
	}

	e.logger.Debug("page ocr done",
		"page", index+1,
		"chars", len(txt),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return txt, nil
}

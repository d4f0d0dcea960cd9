// Package tesseract implements ocr.Recognizer on top of the Tesseract engine
// through gosseract. It needs libtesseract and its headers at build time.
package tesseract

import (
	"context"
	"fmt"
	"strconv"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/pdfjson/internal/ocr"
)

type Config struct {
	Lang        string // default "eng"
	TessdataDir string // empty -> Tesseract's compiled-in default
}

// Engine creates one gosseract client per call; clients are not shared.
type Engine struct {
	cfg Config
}

var _ ocr.Recognizer = (*Engine)(nil)

func NewEngine(cfg Config) *Engine {
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := gosseract.NewClient()
	defer c.Close()

	if e.cfg.TessdataDir != "" {
		c.TessdataPrefix = e.cfg.TessdataDir
	}
	if err := c.SetLanguage(e.cfg.Lang); err != nil {
		return "", fmt.Errorf("set language %q: %w", e.cfg.Lang, err)
	}
	if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(ocr.RecognitionDPI)); err != nil {
		return "", fmt.Errorf("set dpi: %w", err)
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}

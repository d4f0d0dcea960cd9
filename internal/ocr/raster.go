package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

// renderPage rasterizes a single page (zero-based index) to PNG bytes.
func (e *Extractor) renderPage(ctx context.Context, pdfPath string, index int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "pdfjson-pp-*")
	if err != nil {
		return nil, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			e.logger.Warn("failed to remove temp dir", "path", path, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	page := strconv.Itoa(index + 1)

	// pdftoppm -r 200 -f N -l N -png -singlefile <in.pdf> <tmp/page>  ->  <tmp/page>.png
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-r", strconv.Itoa(e.cfg.DPI),
		"-f", page, "-l", page,
		"-png", "-singlefile",
		pdfPath, prefix,
	)
	if err != nil {
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			return nil, fmt.Errorf("pdftoppm page %s: %w: %s", page, err, truncate(msg, 512))
		}
		return nil, fmt.Errorf("pdftoppm page %s: %w", page, err)
	}

	img, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm produced no image for page %s: %w", page, err)
	}
	return img, nil
}

// toGrayPNG re-encodes a rendered page as 8-bit grayscale.
func toGrayPNG(data []byte) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode page image: %w", err)
	}
	if _, ok := src.(*image.Gray); ok {
		return data, nil
	}

	b := src.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, src, b.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("encode grayscale image: %w", err)
	}
	return buf.Bytes(), nil
}

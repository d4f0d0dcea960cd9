// Package pdf exposes a PDF file as an ordered sequence of pages with
// structured text, backed by github.com/ledongthuc/pdf.
package pdf

import (
	"fmt"
	"math"
	"os"
	"strings"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/pdfjson/internal/common"
	"github.com/joseph-ayodele/pdfjson/internal/extract"
)

// Document is an opened PDF. It is not safe for concurrent use.
type Document struct {
	path string
	f    *os.File
	r    *lpdf.Reader
}

var _ extract.Document = (*Document)(nil)

// Open opens path for reading. Every failure wraps common.ErrOpenDocument;
// a missing file also matches os.ErrNotExist.
func Open(path string) (doc *Document, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", common.ErrOpenDocument, path, err)
	}
	// the parser panics on some malformed trailers
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("%w %q: %v", common.ErrOpenDocument, path, r)
		}
		if err != nil {
			_ = f.Close()
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", common.ErrOpenDocument, path, err)
	}
	r, err := lpdf.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", common.ErrOpenDocument, path, err)
	}
	return &Document{path: path, f: f, r: r}, nil
}

// OpenDocument adapts Open to extract.Opener.
func OpenDocument(path string) (extract.Document, error) {
	return Open(path)
}

// Path returns the file the document was opened from.
func (d *Document) Path() string { return d.path }

func (d *Document) NumPages() int {
	return d.r.NumPage()
}

// PageText returns the embedded text of the zero-based page index. A page
// without a content stream has no text.
func (d *Document) PageText(index int) (text string, err error) {
	n := d.r.NumPage()
	if index < 0 || index >= n {
		return "", fmt.Errorf("page index %d out of range [0,%d)", index, n)
	}

	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("page %d: %v", index+1, r)
		}
	}()

	p := d.r.Page(index + 1)
	if p.V.IsNull() {
		return "", fmt.Errorf("page %d: missing page object", index+1)
	}
	if p.V.Key("Contents").IsNull() {
		return "", nil
	}

	return layoutText(p.Content().Text), nil
}

// layoutText joins positioned glyphs in content-stream order. A change of
// baseline starts a new line and every line ends with a newline. A horizontal
// gap wider than a quarter of the font size becomes a single space.
func layoutText(glyphs []lpdf.Text) string {
	var b strings.Builder
	var prev *lpdf.Text
	for i := range glyphs {
		g := &glyphs[i]
		if g.S == "\n" || g.S == "" {
			continue
		}
		if prev != nil {
			size := math.Max(prev.FontSize, 1)
			switch {
			case math.Abs(g.Y-prev.Y) > size/2:
				b.WriteByte('\n')
			case g.X-(prev.X+prev.W) > size/4 && prev.S != " " && g.S != " ":
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
		prev = g
	}
	if prev != nil {
		b.WriteByte('\n')
	}
	return b.String()
}

func (d *Document) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

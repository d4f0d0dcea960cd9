package extract

import "context"

// Document is an opened PDF: an ordered sequence of pages.
type Document interface {
	// NumPages returns the page count.
	NumPages() int
	// PageText returns the structured text of the zero-based page index.
	PageText(index int) (string, error)
	Close() error
}

// Opener opens the document at path.
type Opener func(path string) (Document, error)

// PageOCR is the fallback for pages without structured text:
// PDF path + zero-based page index -> recognized text.
type PageOCR interface {
	OCRPage(ctx context.Context, pdfPath string, index int) (string, error)
}

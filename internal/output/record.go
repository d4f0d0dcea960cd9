// Package output streams page records to their destinations.
package output

import "github.com/joseph-ayodele/pdfjson/constants"

// PageRecord is one page of the output document.
type PageRecord struct {
	PageNumber     int    `json:"page_number"`
	StructuredText string `json:"structured_text"`
	OCRText        string `json:"ocr_text"`

	// OCRApplied is set when the page had no structured text and went through OCR.
	OCRApplied bool `json:"-"`
}

// Method names how the page text was obtained.
func (r PageRecord) Method() string {
	if r.OCRApplied {
		return constants.MethodPDFOCR
	}
	return constants.MethodPDFText
}

// Sink receives page records in order. Begin is called once before the first
// record; exactly one of Close (success) or Abort (failure) ends the stream.
type Sink interface {
	Begin() error
	WritePage(rec PageRecord) error
	Close() error
	Abort() error
}

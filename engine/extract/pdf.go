package extract

import (
	"fmt"

	pdf "github.com/ledongthuc/pdf"

	"github.com/askdocs-ai/askdocs/engine/domain"
)

// PDF extracts one page of text per PDF page. Page numbers are 1-based.
// Blank pages are dropped.
type PDF struct{}

func (PDF) Extract(path string) (doc domain.Document, err error) {
	// The pdf parser panics on some malformed files; treat that the same
	// as a parse error so one bad file cannot take down a batch.
	defer func() {
		if r := recover(); r != nil {
			err = &domain.ExtractionError{File: path, Err: fmt.Errorf("pdf panic: %v", r)}
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return domain.Document{}, &domain.ExtractionError{File: path, Err: err}
	}
	defer f.Close()

	doc = domain.Document{Path: path, Format: domain.FormatPDF}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return domain.Document{}, &domain.ExtractionError{File: path, Err: fmt.Errorf("page %d: %w", i, err)}
		}
		if domain.SanitizeText(text) == "" {
			continue
		}
		num := i
		doc.Pages = append(doc.Pages, domain.Page{Text: text, Number: &num})
	}
	return doc, nil
}

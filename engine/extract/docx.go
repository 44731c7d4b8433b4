package extract

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/askdocs-ai/askdocs/engine/domain"
)

// DOCX extracts paragraph text from the word/document.xml part of the
// OpenXML container. The whole document becomes a single unpaged page,
// paragraphs joined by blank lines so the chunker can split on them.
type DOCX struct{}

func (DOCX) Extract(path string) (domain.Document, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return domain.Document{}, &domain.ExtractionError{File: path, Err: fmt.Errorf("open container: %w", err)}
	}
	defer zr.Close()

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return domain.Document{}, &domain.ExtractionError{File: path, Err: errors.New("missing word/document.xml")}
	}

	rc, err := body.Open()
	if err != nil {
		return domain.Document{}, &domain.ExtractionError{File: path, Err: err}
	}
	defer rc.Close()

	paragraphs, err := docxParagraphs(rc)
	if err != nil {
		return domain.Document{}, &domain.ExtractionError{File: path, Err: err}
	}

	doc := domain.Document{Path: path, Format: domain.FormatDOCX}
	text := strings.Join(paragraphs, "\n\n")
	if domain.SanitizeText(text) != "" {
		doc.Pages = append(doc.Pages, domain.Page{Text: text})
	}
	return doc, nil
}

// docxParagraphs streams the document XML collecting the text runs of each
// <w:p> paragraph. Tabs and explicit breaks inside a run are preserved.
func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var paragraphs []string
	var cur strings.Builder
	inParagraph := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				cur.Reset()
			case "t":
				var v string
				if err := dec.DecodeElement(&v, &t); err != nil {
					return nil, fmt.Errorf("document xml: %w", err)
				}
				cur.WriteString(v)
			case "tab":
				cur.WriteString("\t")
			case "br":
				cur.WriteString("\n")
			}
		case xml.EndElement:
			if t.Name.Local == "p" && inParagraph {
				if s := strings.TrimSpace(cur.String()); s != "" {
					paragraphs = append(paragraphs, cur.String())
				}
				inParagraph = false
			}
		}
	}
	return paragraphs, nil
}

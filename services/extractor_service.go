package services

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/itish2003/docqa/models"
)

const pdfMediaType = "application/pdf"

// PDFExtractor returns the plain text of every page of a PDF, in page order.
type PDFExtractor interface {
	ExtractPages(data []byte) ([]string, error)
}

// DocumentIngestor validates uploads and turns PDF bytes into a Document.
type DocumentIngestor struct {
	extractor PDFExtractor
}

func NewDocumentIngestor(extractor PDFExtractor) *DocumentIngestor {
	return &DocumentIngestor{extractor: extractor}
}

// Ingest rejects anything that is not declared as a PDF before touching the
// bytes. A declared type of application/octet-stream, or none at all, defers
// to the filename extension.
func (i *DocumentIngestor) Ingest(data []byte, filename, contentType string) (*models.Document, error) {
	if !IsPDF(filename, contentType) {
		return nil, fmt.Errorf("%w: %q (%s)", ErrInvalidDocumentType, filename, contentType)
	}

	pages, err := i.extractor.ExtractPages(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDocumentParse, filename, err)
	}

	doc := &models.Document{Filename: filename, Pages: make([]models.Page, 0, len(pages))}
	for n, text := range pages {
		doc.Pages = append(doc.Pages, models.Page{Number: n + 1, Text: text})
	}
	log.Debug().Str("filename", filename).Int("pages", len(pages)).Msg("extracted pdf text")
	return doc, nil
}

// IsPDF reports whether the declared media type, or failing that the
// filename extension, identifies a PDF.
func IsPDF(filename, contentType string) bool {
	mediaType := ""
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return false
		}
		mediaType = strings.ToLower(mt)
	}

	switch mediaType {
	case pdfMediaType:
		return true
	case "", "application/octet-stream":
		return strings.EqualFold(filepath.Ext(filename), ".pdf")
	default:
		return false
	}
}

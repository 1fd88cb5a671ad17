package services

import (
	"bytes"
	"fmt"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

// UniPDFExtractor extracts text with UniPDF, which needs a metered license key.
type UniPDFExtractor struct{}

func NewUniPDFExtractor(licenseKey string) (*UniPDFExtractor, error) {
	if licenseKey == "" {
		return nil, fmt.Errorf("unipdf backend requires UNIDOC_LICENSE_KEY")
	}
	if err := license.SetMeteredKey(licenseKey); err != nil {
		return nil, fmt.Errorf("failed to set unidoc license key: %w", err)
	}
	return &UniPDFExtractor{}, nil
}

func (e *UniPDFExtractor) ExtractPages(data []byte) ([]string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, err
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}

		ex, err := extractor.New(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}

		text, err := ex.ExtractText()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

package services

import "errors"

// Errors produced by the document pipeline. Each one is terminal for the
// request that triggered it.
var (
	// ErrInvalidDocumentType means the upload is not a PDF. No extraction was attempted.
	ErrInvalidDocumentType = errors.New("invalid document type")

	// ErrDocumentParse means the PDF bytes could not be read.
	ErrDocumentParse = errors.New("document parse error")

	// ErrEmptyDocument means the PDF contains no extractable text.
	ErrEmptyDocument = errors.New("empty document")

	// ErrSessionNotFound covers unknown, evicted and malformed session ids alike.
	ErrSessionNotFound = errors.New("session not found")

	// ErrProcessing wraps failures of the embedding, generation or index backends.
	ErrProcessing = errors.New("processing error")
)

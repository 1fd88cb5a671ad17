package models

import "strings"

// Document is the text extracted from one uploaded file, page by page.
type Document struct {
	Filename string
	Pages    []Page
}

// Page holds the text of a single 1-based page.
type Page struct {
	Number int
	Text   string
}

// Text concatenates every page, separated by a blank line.
func (d *Document) Text() string {
	var sb strings.Builder
	for i, p := range d.Pages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// Chunk is an immutable slice of document text used as the unit of retrieval.
// Index is the chunk's position in the document and breaks ranking ties.
type Chunk struct {
	Index   int
	Content string
	Source  string
	Page    int
}

// QueryResult is the answer to one question together with the chunks it
// was generated from, most similar first.
type QueryResult struct {
	Answer  string
	Sources []Chunk
}

package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/itish2003/docqa/models"
)

const testDims = 256

// bagOfWordsEmbedder hashes lower-cased words into a fixed number of
// buckets. Texts sharing words get similar vectors, which is enough to make
// retrieval deterministic in tests.
type bagOfWordsEmbedder struct {
	calls atomic.Int64
}

func (e *bagOfWordsEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	v := make([]float32, testDims)
	v[0] = 0.01 // never a zero vector
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[1+int(h.Sum32()%(testDims-1))]++
	}
	return v, nil
}

// constantEmbedder maps everything to the same vector, making every chunk tie.
type constantEmbedder struct{}

func (constantEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0, 0}, nil
}

type failingEmbedder struct {
	err error
}

func (e failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, e.err
}

// recordingGenerator echoes the question and remembers what it was given.
type recordingGenerator struct {
	mu        sync.Mutex
	questions []string
	chunks    [][]models.Chunk
	err       error
}

func (g *recordingGenerator) Generate(_ context.Context, question string, chunks []models.Chunk) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.questions = append(g.questions, question)
	g.chunks = append(g.chunks, chunks)
	if g.err != nil {
		return "", g.err
	}
	return fmt.Sprintf("Answer to '%s'", question), nil
}

// stubExtractor returns fixed pages and counts calls.
type stubExtractor struct {
	pages []string
	err   error
	calls atomic.Int64
}

func (s *stubExtractor) ExtractPages([]byte) ([]string, error) {
	s.calls.Add(1)
	return s.pages, s.err
}

// countingProvider wraps a provider and counts created and dropped indexes.
type countingProvider struct {
	inner   IndexProvider
	created atomic.Int64
	dropped atomic.Int64
	addErr  error
}

func (p *countingProvider) NewIndex(ctx context.Context) (VectorIndex, error) {
	idx, err := p.inner.NewIndex(ctx)
	if err != nil {
		return nil, err
	}
	p.created.Add(1)
	return &countingIndex{VectorIndex: idx, provider: p}, nil
}

type countingIndex struct {
	VectorIndex
	provider *countingProvider
}

func (x *countingIndex) Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if x.provider.addErr != nil {
		return x.provider.addErr
	}
	return x.VectorIndex.Add(ctx, chunks, vectors)
}

func (x *countingIndex) Drop(ctx context.Context) error {
	x.provider.dropped.Add(1)
	return x.VectorIndex.Drop(ctx)
}

// staticChain is a RetrievalChain test double that optionally tracks Close.
type staticChain struct {
	answer string
	closed atomic.Bool
}

func (c *staticChain) Ask(_ context.Context, question string) (*models.QueryResult, error) {
	return &models.QueryResult{
		Answer:  c.answer + question,
		Sources: []models.Chunk{{Content: "Mock page content", Source: "mock_source.pdf", Page: 1}},
	}, nil
}

func (c *staticChain) Close(context.Context) error {
	c.closed.Store(true)
	return nil
}

var errBackend = errors.New("backend unavailable")

func textDocument(filename string, pages ...string) *models.Document {
	doc := &models.Document{Filename: filename}
	for i, p := range pages {
		doc.Pages = append(doc.Pages, models.Page{Number: i + 1, Text: p})
	}
	return doc
}

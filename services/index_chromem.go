package services

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"github.com/itish2003/docqa/models"
)

const (
	metaSource     = "source"
	metaPage       = "page"
	metaChunkIndex = "chunk_index"
)

// ChromemProvider keeps every session index as a collection of one
// in-process chromem database.
type ChromemProvider struct {
	db *chromem.DB
}

func NewChromemProvider() *ChromemProvider {
	return &ChromemProvider{db: chromem.NewDB()}
}

func (p *ChromemProvider) NewIndex(_ context.Context) (VectorIndex, error) {
	name := "session-" + uuid.NewString()
	// Embeddings are always supplied by the caller, so the collection's own
	// embedding function is never invoked.
	collection, err := p.db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return &chromemIndex{db: p.db, collection: collection}, nil
}

type chromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
}

func (x *chromemIndex) Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d chunks but %d vectors", len(chunks), len(vectors))
	}
	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        fmt.Sprintf("chunk-%06d", c.Index),
			Content:   c.Content,
			Embedding: vectors[i],
			Metadata: map[string]string{
				metaSource:     c.Source,
				metaPage:       strconv.Itoa(c.Page),
				metaChunkIndex: strconv.Itoa(c.Index),
			},
		}
	}
	if err := x.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Search scores every chunk so that ties at the k-th position are resolved
// by document order rather than by whatever chromem happens to return.
func (x *chromemIndex) Search(ctx context.Context, vector []float32, k int) ([]models.Chunk, error) {
	n := x.collection.Count()
	if n == 0 || k <= 0 {
		return nil, nil
	}
	results, err := x.collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	scored := make([]scoredChunk, 0, len(results))
	for _, r := range results {
		page, _ := strconv.Atoi(r.Metadata[metaPage])
		index, _ := strconv.Atoi(r.Metadata[metaChunkIndex])
		scored = append(scored, scoredChunk{
			chunk: models.Chunk{
				Index:   index,
				Content: r.Content,
				Source:  r.Metadata[metaSource],
				Page:    page,
			},
			score: r.Similarity,
		})
	}
	return rankChunks(scored, k), nil
}

func (x *chromemIndex) Count() int {
	return x.collection.Count()
}

func (x *chromemIndex) Drop(_ context.Context) error {
	if err := x.db.DeleteCollection(x.collection.Name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

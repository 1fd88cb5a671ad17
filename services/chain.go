package services

import (
	"context"
	"fmt"

	"github.com/itish2003/docqa/models"
)

// RetrievalChain answers a question against one document. Calls are
// independent: nothing from a previous question influences the next one.
type RetrievalChain interface {
	Ask(ctx context.Context, question string) (*models.QueryResult, error)
}

// ChainFactory binds indexes to the shared embedder and generator.
type ChainFactory struct {
	embedder  Embedder
	generator Generator
	topK      int
}

func NewChainFactory(embedder Embedder, generator Generator, topK int) *ChainFactory {
	return &ChainFactory{embedder: embedder, generator: generator, topK: topK}
}

// MakeChain takes ownership of index; closing the chain drops it.
func (f *ChainFactory) MakeChain(index VectorIndex) *RAGChain {
	return &RAGChain{
		index:     index,
		embedder:  f.embedder,
		generator: f.generator,
		topK:      f.topK,
	}
}

// RAGChain retrieves the top-K chunks for a question and has the generator
// answer from them. It holds no mutable state, so concurrent Ask calls are safe.
type RAGChain struct {
	index     VectorIndex
	embedder  Embedder
	generator Generator
	topK      int
}

func (c *RAGChain) Ask(ctx context.Context, question string) (*models.QueryResult, error) {
	vector, err := c.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed question: %w", ErrProcessing, err)
	}

	chunks, err := c.index.Search(ctx, vector, c.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}

	answer, err := c.generator.Generate(ctx, question, chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}

	return &models.QueryResult{Answer: answer, Sources: chunks}, nil
}

// Close drops the chain's index.
func (c *RAGChain) Close(ctx context.Context) error {
	return c.index.Drop(ctx)
}

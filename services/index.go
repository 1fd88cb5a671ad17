package services

import (
	"context"
	"sort"

	"github.com/itish2003/docqa/models"
)

// VectorIndex stores the chunks of one document with their embeddings.
// An index belongs to exactly one session and is read-only once built.
type VectorIndex interface {
	// Add inserts chunks with their vectors; vectors[i] belongs to chunks[i].
	Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error
	// Search returns at most k chunks, most similar first.
	Search(ctx context.Context, vector []float32, k int) ([]models.Chunk, error)
	Count() int
	// Drop releases everything the index holds.
	Drop(ctx context.Context) error
}

// IndexProvider creates empty, independent indexes.
type IndexProvider interface {
	NewIndex(ctx context.Context) (VectorIndex, error)
}

type scoredChunk struct {
	chunk models.Chunk
	score float32
}

// rankChunks orders by descending score, then by chunk position, and keeps
// the first k.
func rankChunks(scored []scoredChunk, k int) []models.Chunk {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].chunk.Index < scored[j].chunk.Index
	})
	if k > len(scored) {
		k = len(scored)
	}
	out := make([]models.Chunk, 0, k)
	for _, s := range scored[:k] {
		out = append(out, s.chunk)
	}
	return out
}
